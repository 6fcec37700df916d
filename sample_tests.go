package main

import (
	"github.com/testrt/threadharness/framework/runtest"
)

// sampleCatalog declares the tests this program runs.
func sampleCatalog(defaultStackSize int) runtest.Catalog {
	return runtest.NewCatalogBuilder(defaultStackSize).
		Add("addition", addition).
		Add("multi", multi).
		Add("emtpy", emtpy).
		Add("computey", computey).
		Build()
}

func addition(t *runtest.T) {
	some := 1 + 1
	t.Debugf("Hello %d", some)
}

func multi(t *runtest.T) {
	some := 1 * 5
	t.Assert(some == 5)
}

func emtpy(t *runtest.T) {
	t.FailNow()
}

func computey(t *runtest.T) {
	some := []int{1, 2, 3, 4, 5}
	sum := 0
	for _, n := range some {
		sum += n
	}
	t.Debugf("%d", sum)
}
