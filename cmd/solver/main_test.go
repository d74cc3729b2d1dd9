package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/genie/internal/adapters/transport"
	"github.com/okian/genie/internal/solver"
	"github.com/okian/genie/pkg/logger"
)

func TestSolverCommand(t *testing.T) {
	convey.Convey("Given the solver command", t, func() {
		_ = logger.Init()

		convey.Convey("When listing behaviours", func() {
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"behaviours"})

			convey.So(cmd.Execute(), convey.ShouldBeNil)
			for _, b := range solver.Behaviours() {
				convey.So(out.String(), convey.ShouldContainSubstring, string(b))
			}
		})

		convey.Convey("When the behaviour is unknown", func() {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--behaviour", "chaotic", "--addr", "127.0.0.1:0"})

			err := cmd.Execute()
			convey.So(errors.Is(err, solver.ErrUnknownBehaviour), convey.ShouldBeTrue)
		})

		convey.Convey("When building a miner without an API key", func() {
			opts := &options{behaviour: "mismatch", static: defaultMarkup, storeSize: 4}
			m, err := newMiner(opts, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.Behaviour(), convey.ShouldEqual, solver.Mismatch)

			ctx := context.Background()
			commit, err := m.Commit(ctx, transport.CommitRequest{TaskID: "t1", Prompt: "x", TimeoutMS: 1000})
			convey.So(err, convey.ShouldBeNil)
			convey.So(commit.Digest, convey.ShouldNotBeEmpty)
		})

		convey.Convey("When building a miner with an API key", func() {
			opts := &options{behaviour: "honest", apiKey: "sk-test", baseURL: "http://127.0.0.1:1/v1", storeSize: 4}
			m, err := newMiner(opts, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.Behaviour(), convey.ShouldEqual, solver.Honest)
		})
	})
}
