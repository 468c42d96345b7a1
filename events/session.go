package events

import (
	"maps"

	"github.com/codewandler/openairt-server/tool"
)

type AudioFormat string

const (
	AudioFormatPCM16 AudioFormat = "pcm16"
)

// Recognized session option keys.
const (
	ConfigModalities              = "modalities"
	ConfigInstructions            = "instructions"
	ConfigVoice                   = "voice"
	ConfigInputAudioFormat        = "input_audio_format"
	ConfigOutputAudioFormat       = "output_audio_format"
	ConfigInputAudioTranscription = "input_audio_transcription"
	ConfigTurnDetection           = "turn_detection"
	ConfigTools                   = "tools"
	ConfigToolChoice              = "tool_choice"
	ConfigTemperature             = "temperature"
	ConfigMaxResponseOutputTokens = "max_response_output_tokens"
)

// SessionConfig maps protocol options to their current value. Unknown keys are
// kept as-is so newer clients can round-trip options this server does not know.
type SessionConfig map[string]any

func DefaultSessionConfig(voice string) SessionConfig {
	return SessionConfig{
		ConfigModalities:              []any{"text", "audio"},
		ConfigInstructions:            "",
		ConfigVoice:                   voice,
		ConfigInputAudioFormat:        string(AudioFormatPCM16),
		ConfigOutputAudioFormat:       string(AudioFormatPCM16),
		ConfigInputAudioTranscription: nil,
		ConfigTurnDetection:           nil,
		ConfigTools:                   []any{},
		ConfigToolChoice:              string(tool.ChoiceAuto),
		ConfigTemperature:             0.8,
		ConfigMaxResponseOutputTokens: 4096,
	}
}

// Merge overwrites only the keys present in patch.
func (c SessionConfig) Merge(patch SessionConfig) {
	for k, v := range patch {
		c[k] = v
	}
}

func (c SessionConfig) Clone() SessionConfig {
	return maps.Clone(c)
}

// String returns the value of key if it holds a string.
func (c SessionConfig) String(key string) string {
	s, _ := c[key].(string)
	return s
}
