package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lintstatus/cli/render"
	"github.com/pithecene-io/lintstatus/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command. It must not contact a worker
// or an editor.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitConfig)
			}
			return r.Render(VersionResponse{Version: types.Version, Commit: commit})
		},
	}
}
