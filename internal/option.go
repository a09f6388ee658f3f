package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	titles []string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithTitles overrides the configured list of documents to package.
func WithTitles(titles []string) Option {
	return func(a *application) {
		a.titles = titles
	}
}
