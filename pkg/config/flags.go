package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --target
// on both "genrelay chat" and "genrelay voices").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen         = "listen"
	FlagStaticDir      = "static-dir"
	FlagChatProvider   = "chat-provider"
	FlagSpeechProvider = "speech-provider"
	FlagImageProvider  = "image-provider"
	FlagPersona        = "persona"
	FlagHistoryLimit   = "history-limit"
	FlagTarget         = "target"
)

// ServeFlags are the flags of "genrelay serve".
var ServeFlags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the relay to listen on",
	},
	FlagStaticDir: {
		Name:        "static-dir",
		ViperKey:    "server.static_dir",
		Description: "Directory of static front end files to serve at /",
	},
	FlagChatProvider: {
		Name:        "chat-provider",
		ViperKey:    "chat.provider",
		Description: "Chat provider (openai, gemini, bedrock)",
	},
	FlagSpeechProvider: {
		Name:        "speech-provider",
		ViperKey:    "speech.provider",
		Description: "Speech provider (openai, elevenlabs, google_tts)",
	},
	FlagImageProvider: {
		Name:        "image-provider",
		ViperKey:    "image.provider",
		Description: "Image provider (gemini, openai)",
	},
	FlagPersona: {
		Name:        "persona",
		ViperKey:    "chat.persona",
		Description: "Chat persona (storyforge, helper, none)",
	},
	FlagHistoryLimit: {
		Name:        "history-limit",
		ViperKey:    "chat.history_limit",
		Description: "Most recent history turns forwarded to the chat provider",
	},
}

// ClientFlags are shared by commands that talk to a running relay.
var ClientFlags = FlagSet{
	FlagTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "client.target",
		Description: "Relay URL",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
