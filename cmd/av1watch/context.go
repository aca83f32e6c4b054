package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"av1watch/internal/config"
)

const skipConfigAnnotation = "skipConfigLoad"

// commandContext lazily loads the configuration named by --config and shares
// it between subcommands.
type commandContext struct {
	configFlag *string

	load       sync.Once
	cfg        *config.Config
	configPath string
	fileExists bool
	err        error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.load.Do(func() {
		var flag string
		if c.configFlag != nil {
			flag = strings.TrimSpace(*c.configFlag)
		}
		c.cfg, c.configPath, c.fileExists, c.err = config.Load(flag)
	})
	return c.cfg, c.err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
