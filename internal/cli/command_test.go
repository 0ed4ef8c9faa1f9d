package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/permissioning-deployer/chain/evm/provider"
	"github.com/smartcontractkit/permissioning-deployer/config"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// newTestDeps returns dependencies that load cfg and deploy to a simulated chain.
func newTestDeps(t *testing.T, cfg *config.Config) Deps {
	t.Helper()

	return Deps{
		ConfigLoader: func() (*config.Config, error) { return cfg, nil },
		ChainProvider: func(*config.Config, logger.Logger) (provider.ChainProvider, error) {
			return newSimProvider(t), nil
		},
		Logger: func(*config.Config) (logger.Logger, error) { return logger.Test(t), nil },
	}
}

func TestNewCommand_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewCommand(Deps{})

	assert.Equal(t, "permissions-deployer", cmd.Use)
	assert.Equal(t, deployShort, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotEmpty(t, cmd.Example)
	assert.False(t, cmd.HasAvailableFlags())
	assert.Empty(t, cmd.Commands())
}

func TestNewCommand_Execute(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cmd := NewCommand(newTestDeps(t, cfg))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.ExecuteContext(t.Context()))
	assert.FileExists(t, cfg.Output.Path)
}

func TestNewCommand_Errors(t *testing.T) {
	t.Parallel()

	errLoad := errors.New("load failed")
	errLogger := errors.New("logger failed")
	errProvider := errors.New("provider failed")

	tests := []struct {
		name       string
		giveArgs   []string
		giveDeps   func(*testing.T, Deps) Deps
		wantErr    error
		wantErrMsg string
	}{
		{
			name:       "arguments",
			giveArgs:   []string{"extra"},
			giveDeps:   func(_ *testing.T, d Deps) Deps { return d },
			wantErrMsg: `unknown command "extra"`,
		},
		{
			name: "config loader",
			giveDeps: func(_ *testing.T, d Deps) Deps {
				d.ConfigLoader = func() (*config.Config, error) { return nil, errLoad }
				return d
			},
			wantErr: errLoad,
		},
		{
			name: "invalid config",
			giveDeps: func(_ *testing.T, d Deps) Deps {
				d.ConfigLoader = func() (*config.Config, error) { return &config.Config{}, nil }
				return d
			},
			wantErrMsg: "rpc.urls is required",
		},
		{
			name: "logger",
			giveDeps: func(_ *testing.T, d Deps) Deps {
				d.Logger = func(*config.Config) (logger.Logger, error) { return nil, errLogger }
				return d
			},
			wantErr: errLogger,
		},
		{
			name: "chain provider",
			giveDeps: func(_ *testing.T, d Deps) Deps {
				d.ChainProvider = func(*config.Config, logger.Logger) (provider.ChainProvider, error) {
					return nil, errProvider
				}
				return d
			},
			wantErr: errProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCommand(tt.giveDeps(t, newTestDeps(t, newTestConfig(t))))
			cmd.SetArgs(append([]string{}, tt.giveArgs...))

			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)

			err := cmd.ExecuteContext(t.Context())
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantErrMsg != "" {
				assert.ErrorContains(t, err, tt.wantErrMsg)
			}
		})
	}
}

func TestExamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give string
		want string
	}{
		{name: "empty", give: "", want: ""},
		{name: "single line", give: "  # comment  ", want: "  # comment"},
		{name: "multiple lines", give: "\n\t# one\n\tcmd one\n", want: "  # one\n  cmd one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, examples(tt.give))
		})
	}
}
