package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkboard/src/pkg/config"
	"inkboard/src/pkg/data"
	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// LastObject is the identifier argument referring to the object most
// recently created by the session.
const LastObject = "."

// CommandHandler is a function type for command handlers
type CommandHandler func(*Session, model.Command) (interface{}, error)

// Session represents an individual participant session
type Session struct {
	ID              string
	Participant     string
	DataManager     *data.DataManager
	Surface         *model.Surface
	Context         model.DrawingContext
	Last            string
	// Clipboard holds a detached copy of the object copied or cut last.
	Clipboard       *model.Drawable
	LastActivity    time.Time
	commandHandlers map[string]map[string]CommandHandler
	logger          *log.Logger
}

// NewSession creates a new Session instance with the configured drawing context
func NewSession(id string, dataManager *data.DataManager, logger *log.Logger) (*Session, error) {
	ctx := context.Background()
	logger.Info(ctx, "Creating new Session", log.Fields{"sessionID": id})

	dc, err := config.DrawingContext(dataManager.Config)
	if err != nil {
		logger.Warn(ctx, "Invalid drawing defaults, using built-in context", log.Fields{"error": err})
		dc = model.DefaultDrawingContext()
	}

	s := &Session{
		ID:           id,
		Participant:  dataManager.Config.Participant,
		DataManager:  dataManager,
		Context:      dc,
		LastActivity: time.Now(),
		logger:       logger,
	}
	s.initCommandHandlers()

	logger.Info(ctx, "New Session created successfully", log.Fields{"sessionID": id})
	return s, nil
}

// initCommandHandlers initializes the command handlers map
func (s *Session) initCommandHandlers() {
	ctx := context.Background()
	s.logger.Debug(ctx, "Initializing command handlers", nil)

	s.commandHandlers = map[string]map[string]CommandHandler{
		"surface": initSurfaceCommandHandlers(),
		"line":    initLineCommandHandlers(),
		"shape":   initShapeCommandHandlers(),
		"text":    initTextCommandHandlers(),
		"image":   initImageCommandHandlers(),
		"node":    initNodeCommandHandlers(),
		"object":  initObjectCommandHandlers(),
		"layer":   initLayerCommandHandlers(),
		"page":    initPageCommandHandlers(),
		"file":    initFileCommandHandlers(),
		"context": initContextCommandHandlers(),
		"system":  initSystemCommandHandlers(),
	}

	s.logger.Debug(ctx, "Command handlers initialized", nil)
}

// CommandRun executes a command within the session context
func (s *Session) CommandRun(cmd model.Command) (interface{}, error) {
	ctx := context.Background()
	s.logger.Info(ctx, "Running command", log.Fields{"command": cmd})

	s.LastActivity = time.Now()

	scopeHandlers, ok := s.commandHandlers[cmd.Scope]
	if !ok {
		s.logger.Error(ctx, "Invalid command scope", log.Fields{"scope": cmd.Scope})
		return nil, errors.New("invalid command scope")
	}

	handler, ok := scopeHandlers[cmd.Operation]
	if !ok {
		s.logger.Error(ctx, "Invalid command operation", log.Fields{"operation": cmd.Operation})
		return nil, errors.New("invalid command operation")
	}

	result, err := handler(s, cmd)
	switch {
	case err == nil:
		s.logger.Info(ctx, "Command executed successfully", nil)
	case model.IsWarning(err):
		s.logger.Warn(ctx, "Command completed with warning", log.Fields{"warning": err})
	default:
		s.logger.Error(ctx, "Command execution failed", log.Fields{"error": err})
	}

	return result, err
}

// SurfaceGet retrieves the current surface
func (s *Session) SurfaceGet() (*model.Surface, error) {
	if s.Surface == nil {
		s.logger.Warn(context.Background(), "No surface selected", nil)
		return nil, errors.New("no surface selected")
	}
	return s.Surface, nil
}

// SurfaceSet sets the current surface
func (s *Session) SurfaceSet(surface *model.Surface) {
	ctx := context.Background()
	if surface != nil {
		s.logger.Info(ctx, "Setting current surface", log.Fields{"surfaceID": surface.ID})
	} else {
		s.logger.Info(ctx, "Clearing current surface", nil)
	}
	s.Surface = surface
	s.Last = ""
}

// Info returns the exported view of the session
func (s *Session) Info() model.Session {
	info := model.Session{
		ID:           s.ID,
		Participant:  s.Participant,
		LastActivity: s.LastActivity,
	}
	if s.Surface != nil {
		info.SurfaceID = s.Surface.ID
	}
	return info
}

// resolve maps an identifier argument to an object id, expanding LastObject.
func (s *Session) resolve(arg string) (string, error) {
	if arg != LastObject {
		return arg, nil
	}
	if s.Last == "" {
		return "", errors.New("no object created in this session")
	}
	return s.Last, nil
}

// remember records the object created last and returns its id as the result.
func (s *Session) remember(d *model.Drawable) string {
	s.Last = d.ID
	return d.ID
}

// lineKey identifies the line being drawn by this session.
func (s *Session) lineKey() string {
	return fmt.Sprintf("session:%s", s.ID)
}

// initSurfaceCommandHandlers initializes surface command handlers
func initSurfaceCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"add":      handleSurfaceAdd,
		"select":   handleSurfaceSelect,
		"list":     handleSurfaceList,
		"delete":   handleSurfaceDelete,
		"view":     handleSurfaceView,
		"save":     handleSurfaceSave,
		"load":     handleSurfaceLoad,
		"stored":   handleSurfaceStored,
		"validate": handleSurfaceValidate,
	}
}

// initLineCommandHandlers initializes line command handlers
func initLineCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"draw":   handleLineDraw,
		"begin":  handleLineBegin,
		"point":  handleLinePoint,
		"end":    handleLineEnd,
		"cancel": handleLineCancel,
		"split":  handleLineSplit,
	}
}

// initShapeCommandHandlers initializes shape command handlers
func initShapeCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"add":  handleShapeAdd,
		"list": handleShapeList,
	}
}

// initTextCommandHandlers initializes text command handlers
func initTextCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"add":    handleTextAdd,
		"update": handleTextUpdate,
	}
}

// initImageCommandHandlers initializes image command handlers
func initImageCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"add": handleImageAdd,
	}
}

// initNodeCommandHandlers initializes mind-map node command handlers
func initNodeCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"add":      handleNodeAdd,
		"update":   handleNodeUpdate,
		"move":     handleNodeMove,
		"parent":   handleNodeParent,
		"kind":     handleNodeKind,
		"delete":   handleNodeDelete,
		"children": handleNodeChildren,
		"view":     handleNodeView,
	}
}

// initObjectCommandHandlers initializes object command handlers
func initObjectCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"info":      handleObjectInfo,
		"color":     handleObjectColor,
		"gradient":  handleObjectGradient,
		"thickness": handleObjectThickness,
		"linekind":  handleObjectLineKind,
		"move":      handleObjectMove,
		"glide":     handleObjectGlide,
		"resize":    handleObjectResize,
		"fade":      handleObjectFade,
		"rotate":    handleObjectRotate,
		"delete":    handleObjectDelete,
		"copy":      handleObjectCopy,
		"cut":       handleObjectCut,
		"paste":     handleObjectPaste,
	}
}

// initLayerCommandHandlers initializes layer command handlers
func initLayerCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"order": handleLayerOrder,
		"list":  handleLayerList,
	}
}

// initPageCommandHandlers initializes page command handlers
func initPageCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"switch": handlePageSwitch,
		"add":    handlePageAdd,
		"clear":  handlePageClear,
		"move":   handlePageMove,
		"list":   handlePageList,
		"export": handlePageExport,
	}
}

// initFileCommandHandlers initializes file command handlers
func initFileCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"export": handleFileExport,
		"import": handleFileImport,
	}
}

// initContextCommandHandlers initializes drawing context command handlers
func initContextCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"show":      handleContextShow,
		"color":     handleContextColor,
		"secondary": handleContextSecondary,
		"colorkind": handleContextColorKind,
		"thickness": handleContextThickness,
		"linekind":  handleContextLineKind,
		"fill":      handleContextFill,
		"font":      handleContextFont,
		"reset":     handleContextReset,
	}
}

// initSystemCommandHandlers initializes system command handlers
func initSystemCommandHandlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"exit":   handleSystemExit,
		"quit":   handleSystemExit,
		"status": handleSystemStatus,
	}
}
