package main

import (
	"context"
	"os"
	"runtime"

	"github.com/Zyko0/go-sdl3/bin/binimg"
	"github.com/Zyko0/go-sdl3/bin/binsdl"
	"github.com/Zyko0/go-sdl3/bin/binttf"
	"github.com/charmbracelet/fang"
)

const version = "0.1.0"

func init() {
	// SDL3 requires the main thread for some operations.
	runtime.LockOSThread()
}

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	defer binsdl.Load().Unload()
	defer binimg.Load().Unload()
	defer binttf.Load().Unload()

	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		return 1
	}
	return 0
}
