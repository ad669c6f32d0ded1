package config

type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
}

type AI struct{}

var _ AIConfig = AI{}

func (AI) GetGeminiAPIKey() string {
	return GetEnv("GEMINI_API_KEY", "")
}

func (AI) GetGeminiModel() string {
	return GetEnv("GEMINI_MODEL", "gemini-2.5-flash")
}
