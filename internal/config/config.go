package config

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	AIConfig
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	AI
}

func New() Config {
	return mainConfig{}
}
