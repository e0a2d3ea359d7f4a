package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *cobra.Command {
	root := &cobra.Command{Use: "askdocs", Short: "root"}
	AddHelpJSONFlag(root)
	root.PersistentFlags().Bool("output", false, "Output as JSON")

	docs := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"ls"},
		Short:   "List documents",
		Run:     func(*cobra.Command, []string) {},
	}
	ask := &cobra.Command{
		Use:     "ask <question>",
		Short:   "Ask a question",
		Example: "askdocs ask \"what is the refund policy?\"",
		Run:     func(*cobra.Command, []string) {},
	}
	ask.Flags().BoolP("sources", "s", false, "Show sources")
	_ = ask.MarkFlagRequired("sources")

	hidden := &cobra.Command{Use: "internal", Hidden: true, Run: func(*cobra.Command, []string) {}}

	root.AddCommand(docs, ask, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(newTestTree())

	assert.Equal(t, "askdocs", schema.Name)
	require.Len(t, schema.Subcommands, 2)

	names := []string{schema.Subcommands[0].Name, schema.Subcommands[1].Name}
	assert.ElementsMatch(t, []string{"ask", "documents"}, names)

	for _, sub := range schema.Subcommands {
		switch sub.Name {
		case "documents":
			assert.Equal(t, []string{"ls"}, sub.Aliases)
			assert.Empty(t, sub.Flags)
		case "ask":
			assert.Contains(t, sub.Example, "refund policy")
			require.Len(t, sub.Flags, 1)
			assert.Equal(t, "sources", sub.Flags[0].Name)
			assert.Equal(t, "s", sub.Flags[0].Shorthand)
			assert.Equal(t, "bool", sub.Flags[0].Type)
			assert.True(t, sub.Flags[0].Required)
		}
	}
}

func TestGenerateSchema_SkipsHelpJSONFlag(t *testing.T) {
	schema := GenerateSchema(newTestTree())

	for _, f := range schema.Flags {
		assert.NotEqual(t, helpJSONFlag, f.Name)
	}
	require.Len(t, schema.Flags, 1)
	assert.Equal(t, "output", schema.Flags[0].Name)
}

func TestHelpJSONTarget(t *testing.T) {
	root := newTestTree()

	tests := []struct {
		name   string
		args   []string
		want   string
		wantOK bool
	}{
		{"absent", []string{"ask", "hello"}, "", false},
		{"root", []string{"--help-json"}, "askdocs", true},
		{"subcommand", []string{"ask", "--help-json"}, "ask", true},
		{"alias", []string{"ls", "--help-json"}, "documents", true},
		{"skips positional args", []string{"ask", "what", "--help-json"}, "ask", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := HelpJSONTarget(root, tt.args)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, target)
				assert.Equal(t, tt.want, target.Name())
			}
		})
	}
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, newTestTree()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "askdocs", decoded.Name)
	assert.Len(t, decoded.Subcommands, 2)
}
