package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/genie/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RevealDelayMS, convey.ShouldEqual, 5_000)
				convey.So(cfg.DecayFactor, convey.ShouldEqual, 0.9)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GENIE_ADDR", ":8080")
			_ = os.Setenv("GENIE_REVEAL_DELAY_MS", "250")
			_ = os.Setenv("GENIE_MAX_PENDING_SCORING_SIZE", "3")
			_ = os.Setenv("GENIE_EVALUATORS", "evaluator-0,evaluator-1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RevealDelayMS, convey.ShouldEqual, 250)
				convey.So(cfg.MaxPendingScoringSize, convey.ShouldEqual, 3)
				convey.So(cfg.Evaluators, convey.ShouldResemble, []string{"evaluator-0", "evaluator-1"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
hotkey: "ev-b"
evaluators: ["ev-a", "ev-b"]
session_window_blocks: 90
set_weights_period_blocks: 20
solvers:
  s1: "http://127.0.0.1:8091"
  s2: "http://127.0.0.1:8092"
kind_weights:
  seo:
    visual_accuracy: 0.5
    discoverability: 0.5
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GENIE_CONFIG", tmpFile)
			_ = os.Setenv("GENIE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should apply and env should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Hotkey, convey.ShouldEqual, "ev-b")
				convey.So(cfg.SessionWindowBlocks, convey.ShouldEqual, 90)
				convey.So(cfg.Solvers, convey.ShouldHaveLength, 2)
				convey.So(cfg.KindWeights["seo"]["discoverability"], convey.ShouldEqual, 0.5)
				convey.So(cfg.KindWeights["accuracy"]["visual_accuracy"], convey.ShouldEqual, 0.8)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GENIE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("GENIE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("GENIE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "genie-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"GENIE_CONFIG",
		"GENIE_ADDR",
		"GENIE_REVEAL_DELAY_MS",
		"GENIE_MAX_PENDING_SCORING_SIZE",
		"GENIE_EVALUATORS",
	} {
		_ = os.Unsetenv(k)
	}
}
