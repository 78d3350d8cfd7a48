package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host string `env:"HOST,default=localhost"`
	Port int    `env:"PORT,default=8080"`

	JWTSecret       string        `env:"JWT_SECRET,required=true"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,default=15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`

	BufferSize           int `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,default=64"`

	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=5000"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	FramesPerSecond float64 `env:"WS_FRAMES_PER_SECOND,default=20"`
	FrameBurst      int     `env:"WS_FRAME_BURST,default=40"`

	CensoredWordlist string `env:"CENSORED_WORDLIST"`
	CharReplacement  string `env:"CHARACTER_REPLACEMENT,default=*"`

	DebugPort int `env:"DEBUG_PORT,default=6060"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
