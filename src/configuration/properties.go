package configuration

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type (
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"DEBUG"`

		Auth        AuthProperties        `envPrefix:"AUTH_"`
		S3          S3Properties          `envPrefix:"S3_"`
		Server      HttpServerProperties  `envPrefix:"HTTP_"`
		Recognition RecognitionProperties `envPrefix:"RECOGNITION_"`
	}

	AuthProperties struct {
		Host                   string        `env:"HOST" envDefault:"https://gitlab.my.com"`
		ID                     string        `env:"ID"`
		Secret                 string        `env:"SECRET"`
		Redirect               string        `env:"REDIRECT_URL" envDefault:"http://localhost:8088/callback"`
		AccessTokenCookieName  string        `env:"ACCESS_COOKIE" envDefault:"fs_access_token"`
		RefreshTokenCookieName string        `env:"REFRESH_COOKIE" envDefault:"fs_refresh_token"`
		IDTokenCookieName      string        `env:"ID_COOKIE" envDefault:"fs_id_token"`
		ReadTimeout            time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}

	HttpServerProperties struct {
		Name        string        `env:"NAME" envDefault:"foodscan"`
		Port        string        `env:"PORT" envDefault:"8088"`
		ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}

	// RecognitionProperties describes the external food-recognition endpoint and
	// the compression policy applied before an image is submitted to it.
	RecognitionProperties struct {
		Host       string `env:"HOST" envDefault:"https://test-fast-api-omega.vercel.app"`
		UploadPath string `env:"UPLOAD_PATH" envDefault:"/upload/"`
		// Total wall-clock budget for one submission. Large photos over a slow
		// mobile link can legitimately take minutes.
		Timeout time.Duration `env:"TIMEOUT" envDefault:"3m"`

		CompressThreshold int64   `env:"COMPRESS_THRESHOLD" envDefault:"3145728"`
		MaxDimension      int     `env:"MAX_DIMENSION" envDefault:"800"`
		Quality           float64 `env:"QUALITY" envDefault:"0.7"`
		RetryMaxDimension int     `env:"RETRY_MAX_DIMENSION" envDefault:"600"`
		RetryQuality      float64 `env:"RETRY_QUALITY" envDefault:"0.4"`
	}

	S3Properties struct {
		Host        string        `env:"HOST" envDefault:"https://s3.minio.com"`
		Port        string        `env:"PORT" envDefault:"9000"`
		AccessKey   string        `env:"ACCESS_KEY"`
		SecretKey   string        `env:"SECRET_KEY"`
		Bucket      string        `env:"BUCKET" envDefault:"foodscan"`
		ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}
)

func ReadProperties() *Properties {
	config := &Properties{}

	if err := env.Parse(config); err != nil {
		panic(fmt.Errorf("read config error: %w", err))
	}
	return config
}
