package install

import (
	"errors"
	"fmt"
	"os"

	"limeinstall/internal/command"
)

// ErrArchiveMissing is returned when the rootfs archive cannot be found.
var ErrArchiveMissing = errors.New("rootfs archive not found")

func (o *Orchestrator) extractRootfs() error {
	archive := o.rootfs()
	if !o.DryRun {
		if _, err := os.Stat(archive); err != nil {
			return fmt.Errorf("%w: %s", ErrArchiveMissing, archive)
		}
	}

	_, err := o.sequence().Run([]command.Step{{
		Desc:    "extract rootfs archive",
		Command: fmt.Sprintf("tar -xzf %s -C %s", command.Quote(archive), command.Quote(o.target())),
		Fatal:   true,
		Code:    CodeExtract,
	}})
	return err
}
