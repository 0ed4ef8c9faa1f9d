package exporter_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/smartcontractkit/permissioning-deployer/exporter"
	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

func testConfig() exporter.PermissionConfig {
	return exporter.PermissionConfig{
		PermissionModel:   exporter.PermissionModel,
		UpgradableAddress: "0x00000000000000000000000000000000000000A1",
		InterfaceAddress:  "0x00000000000000000000000000000000000000A7",
		ImplAddress:       "0x00000000000000000000000000000000000000A8",
		NodeMgrAddress:    "0x00000000000000000000000000000000000000A3",
		AccountMgrAddress: "0x00000000000000000000000000000000000000A2",
		RoleMgrAddress:    "0x00000000000000000000000000000000000000A5",
		VoterMgrAddress:   "0x00000000000000000000000000000000000000A6",
		OrgMgrAddress:     "0x00000000000000000000000000000000000000A4",
		NwAdminOrg:        "ADMINORG",
		NwAdminRole:       "ADMIN",
		OrgAdminRole:      "ORGADMIN",
		Accounts:          []string{"0x00000000000000000000000000000000000000F1"},
		SubOrgBreadth:     4,
		SubOrgDepth:       4,
	}
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give string
		want exporter.Format
	}{
		{give: "permission-config.json", want: exporter.FormatJSON},
		{give: "out/config.YAML", want: exporter.FormatYAML},
		{give: "config.yml", want: exporter.FormatYAML},
		{give: "config.toml", want: exporter.FormatTOML},
		{give: "config", want: exporter.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, exporter.FormatFromPath(tt.give))
		})
	}

	_, err := exporter.Format("xml").Marshal(testConfig())
	require.ErrorContains(t, err, `unsupported format "xml"`)
}

func TestFileSink_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		giveFile string
		decode   func([]byte, any) error
	}{
		{name: "json", giveFile: "permission-config.json", decode: json.Unmarshal},
		{name: "yaml", giveFile: "nested/permission-config.yaml", decode: yaml.Unmarshal},
		{name: "toml", giveFile: "permission-config.toml", decode: toml.Unmarshal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lggr, logs := logger.TestObserved(t, zapcore.InfoLevel)
			path := filepath.Join(t.TempDir(), tt.giveFile)
			sink := exporter.NewFileSink(path, lggr)
			assert.Equal(t, path, sink.Path())

			require.NoError(t, sink.Write(t.Context(), testConfig()))

			b, err := os.ReadFile(path)
			require.NoError(t, err)

			var got exporter.PermissionConfig
			require.NoError(t, tt.decode(b, &got))
			assert.Equal(t, testConfig(), got)

			assert.Equal(t, 1, logs.FilterMessage("Data written to file: "+path).Len())
		})
	}
}

func TestFileSink_JSONKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "permission-config.json")
	require.NoError(t, exporter.NewFileSink(path, logger.Nop()).Write(t.Context(), testConfig()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"permissionModel": "v2",
		"upgradableAddress": "0x00000000000000000000000000000000000000A1",
		"interfaceAddress": "0x00000000000000000000000000000000000000A7",
		"implAddress": "0x00000000000000000000000000000000000000A8",
		"nodeMgrAddress": "0x00000000000000000000000000000000000000A3",
		"accountMgrAddress": "0x00000000000000000000000000000000000000A2",
		"roleMgrAddress": "0x00000000000000000000000000000000000000A5",
		"voterMgrAddress": "0x00000000000000000000000000000000000000A6",
		"orgMgrAddress": "0x00000000000000000000000000000000000000A4",
		"nwAdminOrg": "ADMINORG",
		"nwAdminRole": "ADMIN",
		"orgAdminRole": "ORGADMIN",
		"accounts": ["0x00000000000000000000000000000000000000F1"],
		"subOrgBreadth": 4,
		"subOrgDepth": 4
	}`, string(b))
}

func TestFileSink_DefaultPath(t *testing.T) {
	t.Parallel()

	sink := exporter.NewFileSink("", logger.Nop())
	assert.Equal(t, exporter.DefaultFileName, sink.Path())
}

func TestSinks_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	path := filepath.Join(t.TempDir(), "permission-config.json")
	require.ErrorIs(t, exporter.NewFileSink(path, logger.Nop()).Write(ctx, testConfig()), context.Canceled)
	assert.NoFileExists(t, path)

	mem := exporter.NewMemorySink()
	require.ErrorIs(t, mem.Write(ctx, testConfig()), context.Canceled)
	assert.Empty(t, mem.Written())
}
