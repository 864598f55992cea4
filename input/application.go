package input

import (
	"errors"
	"sync/atomic"

	"github.com/joeycumines/go-kexec/keyboard"
)

// ErrNotRunnable is returned by Application.Run for applications created
// with NewUnrunnableApplication.
var ErrNotRunnable = errors.New("input: application cannot be run")

// Application is a foreground program that takes over keyboard input while
// it runs. Keys reach its handler only while it is running.
type Application struct {
	handler KeyHandler
	router  *Router
	name    string
	running atomic.Bool
	canRun  bool
}

// NewApplication returns a runnable Application delivering keys to handler.
func NewApplication(name string, handler KeyHandler) *Application {
	return &Application{name: name, handler: handler, canRun: true}
}

// NewUnrunnableApplication returns an Application that refuses to run, a
// placeholder for programs not available on this device.
func NewUnrunnableApplication(name string) *Application {
	return &Application{name: name}
}

// Name returns the application name.
func (a *Application) Name() string {
	return a.name
}

// Running reports whether the application is running.
func (a *Application) Running() bool {
	return a.running.Load()
}

// Init installs the application on router and redirects input to it.
func (a *Application) Init(router *Router) {
	a.router = router
	router.SetApplication(a)
	router.Focus().Store(TargetApplication)
}

// Run marks the application running.
func (a *Application) Run() error {
	if !a.canRun {
		return ErrNotRunnable
	}
	a.running.Store(true)
	return nil
}

// Stop marks the application stopped and, if it still holds the keyboard,
// hands input back to the terminal.
func (a *Application) Stop() {
	a.running.Store(false)
	if a.router != nil {
		a.router.Focus().CompareAndSwap(TargetApplication, TargetTerminal)
	}
}

// HandleKey implements KeyHandler.
func (a *Application) HandleKey(key keyboard.DecodedKey) {
	if a.running.Load() && a.handler != nil {
		a.handler.HandleKey(key)
	}
}
