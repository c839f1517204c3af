package session

import (
	"fmt"
	"path/filepath"
	"strings"

	"inkboard/src/pkg/model"
)

// handleLayerOrder moves an object to another layer order on its page
func handleLayerOrder(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	order, err := parseInt(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.DrawableManager.ChangeOrder(surface, id, order); err != nil {
		return nil, fmt.Errorf("failed to change order: %w", err)
	}
	return fmt.Sprintf("Object %s moved to order %d", id, order), nil
}

// handleLayerList lists the orders of a page, front-most last
func handleLayerList(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	pageIdx := surface.CurrentPage
	if len(cmd.Args) > 0 {
		if pageIdx, err = parseInt(cmd.Args[0]); err != nil {
			return nil, err
		}
	}
	objects := s.DataManager.Pages.Objects(surface, pageIdx)
	lines := []string{fmt.Sprintf("Page %d, next order %d", pageIdx, s.DataManager.Allocator.Next(surface, pageIdx))}
	for _, d := range objects {
		lines = append(lines, fmt.Sprintf("  %4d %s", d.Order, d.ID))
	}
	return "\n" + strings.Join(lines, "\n"), nil
}

// handlePageSwitch makes another page current
func handlePageSwitch(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	pageIdx, err := parseInt(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.Pages.SwitchPage(surface, pageIdx); err != nil {
		return nil, fmt.Errorf("failed to switch page: %w", err)
	}
	s.DataManager.DrawableManager.CancelLine(s.lineKey())
	return fmt.Sprintf("Page %d of %d", surface.CurrentPage, surface.MaxPageSize), nil
}

// handlePageAdd appends an empty page
func handlePageAdd(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Page %d added", s.DataManager.Pages.AddPage(surface)), nil
}

// handlePageClear destroys every object of a page, the current one by default
func handlePageClear(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	pageIdx := surface.CurrentPage
	if len(cmd.Args) > 0 {
		if pageIdx, err = parseInt(cmd.Args[0]); err != nil {
			return nil, err
		}
	}
	if pageIdx < 0 || pageIdx >= surface.MaxPageSize {
		return nil, model.NewValidationError("clear page", "page %d not in [0, %d)", pageIdx, surface.MaxPageSize)
	}
	removed := s.DataManager.Pages.ClearPage(surface, pageIdx)
	for _, id := range removed {
		s.DataManager.Scheduler.Cancel(id)
		if id == s.Last {
			s.Last = ""
		}
	}
	return fmt.Sprintf("%d objects removed from page %d", len(removed), pageIdx), nil
}

// handlePageMove moves an object to another page
func handlePageMove(s *Session, cmd model.Command) (interface{}, error) {
	surface, id, err := target(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	pageIdx, err := parseInt(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	if err := s.DataManager.DrawableManager.MoveToPage(surface, id, pageIdx); err != nil {
		return nil, fmt.Errorf("failed to move object to page: %w", err)
	}
	return fmt.Sprintf("Object %s moved to page %d", id, pageIdx), nil
}

// handlePageList summarizes every page of the current surface
func handlePageList(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, surface.MaxPageSize)
	for p := 0; p < surface.MaxPageSize; p++ {
		marker := " "
		if p == surface.CurrentPage {
			marker = "*"
		}
		lines = append(lines, fmt.Sprintf("%s page %d: %d objects", marker, p, len(s.DataManager.Pages.Objects(surface, p))))
	}
	return "\n" + strings.Join(lines, "\n"), nil
}

// handlePageExport renders a page to a PNG file in the export directory
func handlePageExport(s *Session, cmd model.Command) (interface{}, error) {
	surface, err := s.SurfaceGet()
	if err != nil {
		return nil, err
	}
	pageIdx, err := parseInt(cmd.Args[0])
	if err != nil {
		return nil, err
	}
	filename := outputPath(s.DataManager.Config.ExportDir, cmd.Args[1])
	if err := s.DataManager.PageExport(surface, pageIdx, filename); err != nil {
		return nil, fmt.Errorf("failed to export page: %w", err)
	}
	return fmt.Sprintf("Page %d exported to %s", pageIdx, filename), nil
}

// outputPath places a bare file name in dir. Paths with a directory part are
// used as given.
func outputPath(dir, name string) string {
	if dir == "" || filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(dir, name)
}
