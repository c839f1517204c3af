package session

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"inkboard/src/pkg/log"
	"inkboard/src/pkg/model"
)

// unbounded marks an argument rule without an upper limit.
const unbounded = -1

// argRule bounds the positional arguments of one operation. Options starting
// with "--" are not counted.
type argRule struct {
	min, max int
	usage    string
	flags    []string
}

var commandRules = map[string]map[string]argRule{
	"surface": {
		"add":      {0, unbounded, "[id] [parent] [description]", nil},
		"select":   {0, 2, "[id] [parent]", nil},
		"list":     {0, 0, "", nil},
		"delete":   {0, 2, "[id] [parent]", nil},
		"view":     {0, 0, "", nil},
		"save":     {0, 0, "", nil},
		"load":     {1, 2, "<id> [parent]", nil},
		"stored":   {0, 0, "", nil},
		"validate": {0, 0, "", nil},
	},
	"line": {
		"draw":   {1, unbounded, "<x,y>... [--loop]", []string{"loop"}},
		"begin":  {1, 1, "<x,y>", nil},
		"point":  {1, unbounded, "<x,y>...", nil},
		"end":    {0, 0, "[--loop]", []string{"loop"}},
		"cancel": {0, 0, "", nil},
		"split":  {2, 3, "<line> <x,y> [radius] [--keep]", []string{"keep"}},
	},
	"shape": {
		"add":  {2, unbounded, "<kind> <x,y> <size>...", nil},
		"list": {0, 0, "", nil},
	},
	"text": {
		"add":    {2, unbounded, "<x,y> <content>", nil},
		"update": {2, unbounded, "<text> <content>", nil},
	},
	"image": {
		"add": {2, 3, "<path> <x,y> [height]", nil},
	},
	"node": {
		"add":      {3, 4, "<kind> <x,y> <text> [parent]", nil},
		"update":   {2, unbounded, "<node> <text>", nil},
		"move":     {2, 2, "<node> <x,y>", nil},
		"parent":   {2, 2, "<node> <parent>", nil},
		"kind":     {2, 3, "<node> <kind> [parent]", nil},
		"delete":   {1, 1, "<node>", nil},
		"children": {1, 1, "<node>", nil},
		"view":     {0, 0, "", nil},
	},
	"object": {
		"info":      {1, 1, "<object>", nil},
		"color":     {2, 2, "<object> <color>", nil},
		"gradient":  {2, 3, "<line> <color_kind> [color]", nil},
		"thickness": {2, 2, "<object> <thickness>", nil},
		"linekind":  {2, 3, "<object> <line_kind> [tiling]", nil},
		"move":      {2, 2, "<object> <x,y>", nil},
		"glide":     {3, 3, "<object> <x,y> <ms>", nil},
		"resize":    {3, 3, "<object> <sx,sy> <ms>", nil},
		"fade":      {3, 3, "<object> <alpha> <ms>", nil},
		"rotate":    {2, 2, "<object> <degrees|x,y,z>", nil},
		"delete":    {1, 2, "<object> [delay_ms]", nil},
		"copy":      {1, 1, "<object>", nil},
		"cut":       {1, 1, "<object>", nil},
		"paste":     {0, 2, "[x,y] [page]", nil},
	},
	"layer": {
		"order": {2, 2, "<object> <order>", nil},
		"list":  {0, 1, "[page]", nil},
	},
	"page": {
		"switch": {1, 1, "<page>", nil},
		"add":    {0, 0, "", nil},
		"clear":  {0, 1, "[page]", nil},
		"move":   {2, 2, "<object> <page>", nil},
		"list":   {0, 0, "", nil},
		"export": {2, 2, "<page> <filename.png>", nil},
	},
	"file": {
		"export": {1, 1, "<filename> [--all]", []string{"all"}},
		"import": {1, 1, "<filename>", nil},
	},
	"context": {
		"show":      {0, 0, "", nil},
		"color":     {1, 1, "<color>", nil},
		"secondary": {1, 1, "<color>", nil},
		"colorkind": {1, 1, "<color_kind>", nil},
		"thickness": {1, 1, "<thickness>", nil},
		"linekind":  {1, 2, "<line_kind> [tiling]", nil},
		"fill":      {1, 2, "<on|off> [color]", nil},
		"font":      {1, 2, "<size> [styles]", nil},
		"reset":     {0, 0, "", nil},
	},
	"system": {
		"exit":   {0, 0, "", nil},
		"quit":   {0, 0, "", nil},
		"status": {0, 0, "", nil},
	},
}

// SessionCommand wraps the model.Command and adds session-specific functionality
type SessionCommand struct {
	model.Command
	logger *log.Logger
}

// NewSessionCommand creates a new SessionCommand from a model.Command
func NewSessionCommand(cmd model.Command, logger *log.Logger) SessionCommand {
	return SessionCommand{Command: cmd, logger: logger}
}

// Validate checks if the command is valid
func (c *SessionCommand) Validate() error {
	ctx := context.Background()
	c.logger.Debug(ctx, "Validating command", log.Fields{"scope": c.Scope, "operation": c.Operation})

	if c.Scope == "" {
		c.logger.Error(ctx, "Command scope is empty", nil)
		return errors.New("command scope is required")
	}
	if c.Operation == "" {
		c.logger.Error(ctx, "Command operation is empty", nil)
		return errors.New("command operation is required")
	}
	return c.validateScopeAndOperation()
}

// validateScopeAndOperation checks the operation exists and its argument count
func (c *SessionCommand) validateScopeAndOperation() error {
	ctx := context.Background()

	rules, ok := commandRules[c.Scope]
	if !ok {
		c.logger.Error(ctx, "Invalid command scope", log.Fields{"scope": c.Scope})
		return fmt.Errorf("invalid command scope: %s", c.Scope)
	}
	rule, ok := rules[c.Operation]
	if !ok {
		c.logger.Error(ctx, "Invalid command operation", log.Fields{"scope": c.Scope, "operation": c.Operation})
		return fmt.Errorf("invalid %s operation: %s", c.Scope, c.Operation)
	}

	positional, flags := splitFlags(c.Args)
	for flag := range flags {
		if !contains(rule.flags, flag) {
			c.logger.Error(ctx, "Invalid command option", log.Fields{"scope": c.Scope, "operation": c.Operation, "option": flag})
			return fmt.Errorf("%s %s command does not accept option --%s", c.Scope, c.Operation, flag)
		}
	}
	n := len(positional)
	if n < rule.min || (rule.max != unbounded && n > rule.max) {
		c.logger.Error(ctx, "Invalid number of arguments", log.Fields{"scope": c.Scope, "operation": c.Operation, "argCount": n})
		if rule.max == 0 {
			return fmt.Errorf("%s %s command does not accept any arguments", c.Scope, c.Operation)
		}
		return fmt.Errorf("usage: %s %s %s", c.Scope, c.Operation, rule.usage)
	}
	return nil
}

// Usage returns the argument synopsis of an operation.
func Usage(scope, operation string) (string, bool) {
	rule, ok := commandRules[scope][operation]
	return rule.usage, ok
}

// Commands lists every scope and operation pair, sorted.
func Commands() [][2]string {
	var out [][2]string
	for scope, ops := range commandRules {
		for op := range ops {
			out = append(out, [2]string{scope, op})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
