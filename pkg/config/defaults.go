package config

import "time"

const (
	defaultListen          = ":3000"
	defaultCORSOrigins     = "*"
	defaultUpstreamTimeout = 5 * time.Minute

	defaultChatProvider       = "gemini"
	defaultSpeechProvider     = "openai"
	defaultTranscribeProvider = "openai"
	defaultImageProvider      = "gemini"

	defaultPersona      = "storyforge"
	defaultHistoryLimit = 20

	defaultSpeechMaxChars = 700
	defaultSpeechBackscan = 200

	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIChatModel  = "gpt-4.1-nano"
	defaultOpenAITTSModel   = "gpt-4o-mini-tts"
	defaultOpenAIS2TModel   = "whisper-1"
	defaultOpenAIImageModel = "gpt-image-1"
	defaultOpenAIVoice      = "alloy"
	defaultOpenAIFormat     = "wav"

	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiChatModel  = "gemini-2.0-flash"
	defaultGeminiImageModel = "gemini-2.5-flash-image"
	defaultGeminiSafety     = "BLOCK_ONLY_HIGH"

	defaultBedrockRegion = "us-east-1"
	defaultBedrockModel  = "us.anthropic.claude-haiku-4-5-20251001-v1:0"

	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultElevenLabsVoiceID = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModel   = "eleven_multilingual_v2"

	defaultGoogleTTSBaseURL  = "https://texttospeech.googleapis.com"
	defaultGoogleTTSLanguage = "en-US"
	defaultGoogleTTSVoice    = "en-US-Neural2-D"

	defaultSearchBaseURL = "https://www.googleapis.com/customsearch/v1"
	defaultSearchResults = 5

	defaultClientTarget = "http://localhost:3000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:          defaultListen,
			CORSOrigins:     defaultCORSOrigins,
			UpstreamTimeout: defaultUpstreamTimeout,
		},
		Chat: ChatConfig{
			Provider:     defaultChatProvider,
			Persona:      defaultPersona,
			HistoryLimit: defaultHistoryLimit,
		},
		Speech: SpeechConfig{
			Provider: defaultSpeechProvider,
			MaxChars: defaultSpeechMaxChars,
			Backscan: defaultSpeechBackscan,
		},
		Transcribe: TranscribeConfig{
			Provider: defaultTranscribeProvider,
		},
		Image: ImageConfig{
			Provider: defaultImageProvider,
		},
		OpenAI: OpenAIConfig{
			BaseURL:    defaultOpenAIBaseURL,
			ChatModel:  defaultOpenAIChatModel,
			TTSModel:   defaultOpenAITTSModel,
			S2TModel:   defaultOpenAIS2TModel,
			ImageModel: defaultOpenAIImageModel,
			Voice:      defaultOpenAIVoice,
			Format:     defaultOpenAIFormat,
		},
		Gemini: GeminiConfig{
			BaseURL:         defaultGeminiBaseURL,
			ChatModel:       defaultGeminiChatModel,
			ImageModel:      defaultGeminiImageModel,
			SafetyThreshold: defaultGeminiSafety,
		},
		Bedrock: BedrockConfig{
			Region: defaultBedrockRegion,
			Model:  defaultBedrockModel,
		},
		ElevenLabs: ElevenLabsConfig{
			BaseURL: defaultElevenLabsBaseURL,
			VoiceID: defaultElevenLabsVoiceID,
			Model:   defaultElevenLabsModel,
		},
		GoogleTTS: GoogleTTSConfig{
			BaseURL:  defaultGoogleTTSBaseURL,
			Language: defaultGoogleTTSLanguage,
			Voice:    defaultGoogleTTSVoice,
		},
		Search: SearchConfig{
			BaseURL: defaultSearchBaseURL,
			Results: defaultSearchResults,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
