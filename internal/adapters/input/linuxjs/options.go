package linuxjs

// Option configures a Platform.
type Option func(*Platform)

// WithDeviceDir sets where js* nodes live.
func WithDeviceDir(dir string) Option {
	return func(p *Platform) {
		if dir != "" {
			p.devDir = dir
		}
	}
}

// WithSysfsDir sets the sysfs input class directory.
func WithSysfsDir(dir string) Option {
	return func(p *Platform) {
		if dir != "" {
			p.sysfsDir = dir
		}
	}
}
