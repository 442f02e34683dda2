//go:build debug

package debug

import "fmt"

func assert(cond bool, msg ...interface{}) {
	if !cond {
		if len(msg) > 0 {
			panic(fmt.Sprintln(msg...))
		}
		panic("assertion failed")
	}
}

func assertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func assertFunc(fn func() bool) {
	if !fn() {
		panic("assertion failed")
	}
}
