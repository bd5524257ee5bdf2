package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/cdnbundle/internal/config"
	ferrors "git.home.luguber.info/inful/cdnbundle/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory to write cdnbundle.yaml into"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if i.Output != "" {
		return RunInit(filepath.Join(i.Output, config.DefaultFilename), i.Force)
	}
	return RunInit(root.Config, i.Force)
}

// RunInit writes the example configuration to configPath.
func RunInit(configPath string, force bool) error {
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return ferrors.ConfigError("cannot write configuration").
			WithCause(err).
			WithContext("path", configPath).
			WithRemedy("pass --force to overwrite an existing file").
			Build()
	}
	fmt.Println("initialized successfully")
	return nil
}
