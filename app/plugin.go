package app

// Plugin is the lifecycle hook surface for framework extensions. The App
// owns its plugins and hands itself to each hook by argument; plugins should
// not retain the pointer past the call.
//
// Register runs at registration time, OnStart after the listener binds,
// OnStop when the server shuts down. Hook errors are logged, never fatal.
type Plugin interface {
	Register(a *App) error
	OnStart(a *App) error
	OnStop(a *App) error
}

// PluginFuncs adapts plain functions to the Plugin interface; nil fields are
// skipped.
type PluginFuncs struct {
	RegisterFunc func(a *App) error
	OnStartFunc  func(a *App) error
	OnStopFunc   func(a *App) error
}

// Register implements Plugin.
func (p PluginFuncs) Register(a *App) error {
	if p.RegisterFunc == nil {
		return nil
	}
	return p.RegisterFunc(a)
}

// OnStart implements Plugin.
func (p PluginFuncs) OnStart(a *App) error {
	if p.OnStartFunc == nil {
		return nil
	}
	return p.OnStartFunc(a)
}

// OnStop implements Plugin.
func (p PluginFuncs) OnStop(a *App) error {
	if p.OnStopFunc == nil {
		return nil
	}
	return p.OnStopFunc(a)
}
