package session

import (
	"context"
	"fmt"
	"os"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// handleFileExport writes the current surface, or every surface with --all,
// to a JSON, XML or YAML file in the save directory
func handleFileExport(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling file export command", log.Fields{"args": cmd.Args})

	args, flags := splitFlags(cmd.Args)
	var surfaces []*model.Surface
	if flags["all"] {
		surfaces = s.DataManager.Registry.All()
	} else {
		surface, err := s.SurfaceGet()
		if err != nil {
			return nil, err
		}
		surfaces = []*model.Surface{surface}
	}

	filename := outputPath(s.DataManager.Config.SaveDir, args[0])
	if err := s.DataManager.SurfaceExport(filename, surfaces...); err != nil {
		return nil, err
	}
	return fmt.Sprintf("%d surfaces exported to %s", len(surfaces), filename), nil
}

// handleFileImport reads surfaces from a file and selects the first one
func handleFileImport(s *Session, cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Handling file import command", log.Fields{"args": cmd.Args})

	filename := cmd.Args[0]
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		filename = outputPath(s.DataManager.Config.SaveDir, filename)
	}
	surfaces, err := s.DataManager.SurfaceImport(filename)
	if err != nil {
		return nil, err
	}
	if len(surfaces) == 0 {
		return "No surfaces in file", nil
	}
	s.SurfaceSet(surfaces[0])
	return fmt.Sprintf("%d surfaces imported, %s selected", len(surfaces), surfaces[0].ID), nil
}
