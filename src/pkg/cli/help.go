package cli

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"

	"inkboard/src/pkg/session"
)

// CommandHelp represents the structure of help information for a specific command.
// The syntax line comes from the session argument rules.
type CommandHelp struct {
	Scope     string
	Operation string
	ShortDesc string
	LongDesc  string
	Arguments []string
	Options   []string
	Examples  []string
}

// Syntax returns the full command synopsis
func (h CommandHelp) Syntax() string {
	usage, _ := session.Usage(h.Scope, h.Operation)
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", h.Scope, h.Operation, usage))
}

// printHelp prints the help message based on the provided arguments
func (c *CLI) printHelp(args []string) {
	switch len(args) {
	case 0:
		c.showGeneralHelp()
	case 1:
		c.showScopeHelp(strings.ToLower(args[0]))
	case 2:
		c.showOperationHelp(strings.ToLower(args[0]), strings.ToLower(args[1]))
	default:
		fmt.Fprintln(c.out, "Invalid help command. Use 'help [scope] [operation]'")
	}
}

// showGeneralHelp displays an overview of all available commands grouped by scope
func (c *CLI) showGeneralHelp() {
	fmt.Fprintln(c.out, "Command syntax: <scope> [operation] [arguments] [options]")
	fmt.Fprintln(c.out, "Coordinates are written x,y. Use \".\" for the object created last.")
	fmt.Fprintln(c.out, "\nAvailable commands:")
	currentScope := ""
	for _, cmd := range commandHelps {
		if cmd.Scope != currentScope {
			fmt.Fprintf(c.out, "\n%s:\n", cmd.Scope)
			currentScope = cmd.Scope
		}
		fmt.Fprintf(c.out, "  %-15s %s\n", cmd.Operation, cmd.ShortDesc)
	}
}

// showScopeHelp displays help information for all commands within a specific scope
func (c *CLI) showScopeHelp(scope string) {
	found := false
	for _, cmd := range commandHelps {
		if cmd.Scope == scope {
			if !found {
				fmt.Fprintf(c.out, "Commands for %s:\n\n", scope)
				found = true
			}
			fmt.Fprintf(c.out, "%-15s %s\n", cmd.Operation, cmd.ShortDesc)
		}
	}
	if !found {
		fmt.Fprintf(c.out, "No help found for %s\n", scope)
	}
}

// showOperationHelp displays detailed help information for a specific operation within a scope
func (c *CLI) showOperationHelp(scope, operation string) {
	for _, cmd := range commandHelps {
		if cmd.Scope == scope && cmd.Operation == operation {
			fmt.Fprintf(c.out, "Command: %s %s\n", scope, operation)
			fmt.Fprintf(c.out, "Description: %s\n", cmd.LongDesc)
			fmt.Fprintf(c.out, "Syntax: %s\n", cmd.Syntax())
			printList(c, "Arguments:", cmd.Arguments)
			printList(c, "Options:", cmd.Options)
			printList(c, "Examples:", cmd.Examples)
			return
		}
	}
	fmt.Fprintf(c.out, "No help found for %s %s\n", scope, operation)
}

func printList(c *CLI, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(c.out, title)
	for _, item := range items {
		fmt.Fprintf(c.out, "  %s\n", item)
	}
}

// completer builds tab completion for scopes and operations from the help table
func completer() *readline.PrefixCompleter {
	var scopes []readline.PrefixCompleterInterface
	var ops []readline.PrefixCompleterInterface
	var helpScopes []readline.PrefixCompleterInterface
	currentScope := ""
	flush := func() {
		if currentScope != "" {
			scopes = append(scopes, readline.PcItem(currentScope, ops...))
			helpScopes = append(helpScopes, readline.PcItem(currentScope))
		}
		ops = nil
	}
	for _, cmd := range commandHelps {
		if cmd.Scope != currentScope {
			flush()
			currentScope = cmd.Scope
		}
		ops = append(ops, readline.PcItem(cmd.Operation))
	}
	flush()
	scopes = append(scopes, readline.PcItem("help", helpScopes...))
	return readline.NewPrefixCompleter(scopes...)
}

// commandHelps is a slice of CommandHelp structs containing help information for all commands.
var commandHelps = []CommandHelp{
	{
		Scope:     "surface",
		Operation: "add",
		ShortDesc: "Create a new surface",
		LongDesc:  "Creates a surface and selects it. Without an id a new one is generated. A parent id makes the surface a child surface.",
		Arguments: []string{"id: (Optional) Identifier of the surface", "parent: (Optional) Identifier of the parent surface", "description: (Optional) Free text"},
		Examples:  []string{"surface add", "surface add board", "surface add notes board \"Meeting notes\""},
	},
	{
		Scope:     "surface",
		Operation: "select",
		ShortDesc: "Select a surface",
		LongDesc:  "Selects the surface the following commands act on. Without arguments the current surface is deselected.",
		Arguments: []string{"id: (Optional) Identifier of the surface", "parent: (Optional) Identifier of the parent surface"},
		Examples:  []string{"surface select board", "surface select"},
	},
	{
		Scope:     "surface",
		Operation: "list",
		ShortDesc: "List open surfaces",
		LongDesc:  "Lists the surfaces in memory. The selected surface is marked with '*'.",
		Examples:  []string{"surface list"},
	},
	{
		Scope:     "surface",
		Operation: "delete",
		ShortDesc: "Delete a surface",
		LongDesc:  "Removes a surface from memory and storage. Defaults to the selected surface.",
		Arguments: []string{"id: (Optional) Identifier of the surface", "parent: (Optional) Identifier of the parent surface"},
		Examples:  []string{"surface delete", "surface delete board"},
	},
	{
		Scope:     "surface",
		Operation: "view",
		ShortDesc: "View the selected surface",
		LongDesc:  "Lists the objects of the current page in layer order.",
		Examples:  []string{"surface view"},
	},
	{
		Scope:     "surface",
		Operation: "save",
		ShortDesc: "Save the selected surface",
		LongDesc:  "Stores a snapshot of the selected surface in the database.",
		Examples:  []string{"surface save"},
	},
	{
		Scope:     "surface",
		Operation: "load",
		ShortDesc: "Load a stored surface",
		LongDesc:  "Loads a surface snapshot from the database and selects it.",
		Arguments: []string{"id: Identifier of the surface", "parent: (Optional) Identifier of the parent surface"},
		Examples:  []string{"surface load board"},
	},
	{
		Scope:     "surface",
		Operation: "stored",
		ShortDesc: "List stored surfaces",
		LongDesc:  "Lists the surface snapshots kept in the database.",
		Examples:  []string{"surface stored"},
	},
	{
		Scope:     "surface",
		Operation: "validate",
		ShortDesc: "Check surface consistency",
		LongDesc:  "Checks layer orders, pages and the mind-map tree of the selected surface.",
		Examples:  []string{"surface validate"},
	},
	{
		Scope:     "line",
		Operation: "draw",
		ShortDesc: "Draw a line",
		LongDesc:  "Draws a line through the given points with the current drawing context.",
		Arguments: []string{"x,y: Points of the line"},
		Options:   []string{"--loop: Close the line"},
		Examples:  []string{"line draw 0,0 1,1 2,0", "line draw 0,0 1,0 1,1 --loop"},
	},
	{
		Scope:     "line",
		Operation: "begin",
		ShortDesc: "Start a line",
		LongDesc:  "Starts a line that is extended with 'line point' and finished with 'line end'.",
		Arguments: []string{"x,y: First point"},
		Examples:  []string{"line begin 0,0"},
	},
	{
		Scope:     "line",
		Operation: "point",
		ShortDesc: "Extend the started line",
		LongDesc:  "Adds points to the line started with 'line begin'. Points too close to the previous one are skipped.",
		Arguments: []string{"x,y: Points to add"},
		Examples:  []string{"line point 1,1 2,1"},
	},
	{
		Scope:     "line",
		Operation: "end",
		ShortDesc: "Finish the started line",
		LongDesc:  "Finishes the line started with 'line begin' and places it on the current page.",
		Options:   []string{"--loop: Close the line"},
		Examples:  []string{"line end", "line end --loop"},
	},
	{
		Scope:     "line",
		Operation: "cancel",
		ShortDesc: "Discard the started line",
		LongDesc:  "Discards the line started with 'line begin'.",
		Examples:  []string{"line cancel"},
	},
	{
		Scope:     "line",
		Operation: "split",
		ShortDesc: "Erase part of a line",
		LongDesc:  "Splits a line around a point. The points within the radius are removed unless --keep is given.",
		Arguments: []string{"line: Line identifier", "x,y: Center of the split", "radius: (Optional) Split radius"},
		Options:   []string{"--keep: Keep the matched points"},
		Examples:  []string{"line split . 1,1", "line split a1b2 1,1 0.2 --keep"},
	},
	{
		Scope:     "shape",
		Operation: "add",
		ShortDesc: "Add a shape",
		LongDesc:  "Adds a geometric shape. Squares and circles take one size, rectangles, rhombi, triangles, ellipses and polygons two, kites, parallelograms and trapezoids three.",
		Arguments: []string{"kind: One of the kinds listed by 'shape list'", "x,y: Center", "size: Shape dimensions"},
		Examples:  []string{"shape add circle 1,1 0.5", "shape add rectangle 0,0 2 1"},
	},
	{
		Scope:     "shape",
		Operation: "list",
		ShortDesc: "List shape kinds",
		LongDesc:  "Lists the shape kinds.",
		Examples:  []string{"shape list"},
	},
	{
		Scope:     "text",
		Operation: "add",
		ShortDesc: "Add a text",
		LongDesc:  "Adds a text with the current font settings.",
		Arguments: []string{"x,y: Position", "content: The text"},
		Examples:  []string{"text add 1,1 \"Hello world\""},
	},
	{
		Scope:     "text",
		Operation: "update",
		ShortDesc: "Change a text",
		LongDesc:  "Replaces the content of a text and measures it again.",
		Arguments: []string{"text: Text identifier", "content: The new text"},
		Examples:  []string{"text update . \"Hello again\""},
	},
	{
		Scope:     "image",
		Operation: "add",
		ShortDesc: "Add an image",
		LongDesc:  "Stores an image file and places it on the current page.",
		Arguments: []string{"path: Image file", "x,y: Position", "height: (Optional) Height in surface units"},
		Examples:  []string{"image add photo.png 0,0", "image add logo.jpg 2,1 1.5"},
	},
	{
		Scope:     "node",
		Operation: "add",
		ShortDesc: "Add a mind-map node",
		LongDesc:  "Adds a theme, subtheme or leaf. Subthemes and leaves hang below a parent node and are joined to it by a branch line.",
		Arguments: []string{"kind: theme, subtheme or leaf", "x,y: Position", "text: Node text", "parent: (Optional) Parent node identifier"},
		Examples:  []string{"node add theme 0,0 \"Project\"", "node add subtheme 2,1 \"Tasks\" ."},
	},
	{
		Scope:     "node",
		Operation: "update",
		ShortDesc: "Change a node text",
		LongDesc:  "Replaces the text of a node. Its frame and branch lines follow.",
		Arguments: []string{"node: Node identifier", "text: The new text"},
		Examples:  []string{"node update . \"Renamed\""},
	},
	{
		Scope:     "node",
		Operation: "move",
		ShortDesc: "Move a node",
		LongDesc:  "Moves a node. The branch lines to its parent and children follow.",
		Arguments: []string{"node: Node identifier", "x,y: New position"},
		Examples:  []string{"node move . 3,2"},
	},
	{
		Scope:     "node",
		Operation: "parent",
		ShortDesc: "Attach a node to another parent",
		LongDesc:  "Moves a node with its subtree below another node. Use '-' to detach it.",
		Arguments: []string{"node: Node identifier", "parent: New parent identifier or '-'"},
		Examples:  []string{"node parent a1b2 c3d4", "node parent a1b2 -"},
	},
	{
		Scope:     "node",
		Operation: "kind",
		ShortDesc: "Change a node kind",
		LongDesc:  "Turns a node into a theme, subtheme or leaf. A node with children cannot become a leaf, a theme is detached from its parent.",
		Arguments: []string{"node: Node identifier", "kind: theme, subtheme or leaf", "parent: (Optional) Parent node identifier"},
		Examples:  []string{"node kind . theme", "node kind a1b2 leaf c3d4"},
	},
	{
		Scope:     "node",
		Operation: "delete",
		ShortDesc: "Delete a node",
		LongDesc:  "Deletes a node together with its subtree and branch lines.",
		Arguments: []string{"node: Node identifier"},
		Examples:  []string{"node delete a1b2"},
	},
	{
		Scope:     "node",
		Operation: "children",
		ShortDesc: "List node children",
		LongDesc:  "Lists the direct children of a node.",
		Arguments: []string{"node: Node identifier"},
		Examples:  []string{"node children ."},
	},
	{
		Scope:     "node",
		Operation: "view",
		ShortDesc: "View the mind map",
		LongDesc:  "Displays the mind-map trees of the selected surface.",
		Examples:  []string{"node view"},
	},
	{
		Scope:     "object",
		Operation: "info",
		ShortDesc: "Describe an object",
		LongDesc:  "Shows kind, position, size, layer order, page and style of an object.",
		Arguments: []string{"object: Object identifier"},
		Examples:  []string{"object info ."},
	},
	{
		Scope:     "object",
		Operation: "color",
		ShortDesc: "Change an object color",
		LongDesc:  "Sets the color of a line, shape, text or node.",
		Arguments: []string{"object: Object identifier", "color: #rrggbb or #rrggbbaa"},
		Examples:  []string{"object color . #ff0000", "object color a1b2 #00ff0080"},
	},
	{
		Scope:     "object",
		Operation: "gradient",
		ShortDesc: "Change a line color kind",
		LongDesc:  "Sets how a line is colored, optionally with its second color.",
		Arguments: []string{"line: Line identifier", "color_kind: monochrome, gradient or two-dashed", "color: (Optional) Second color"},
		Examples:  []string{"object gradient . gradient #0000ff"},
	},
	{
		Scope:     "object",
		Operation: "thickness",
		ShortDesc: "Change a line thickness",
		LongDesc:  "Sets the thickness of a line or the border of a shape.",
		Arguments: []string{"object: Object identifier", "thickness: Positive number"},
		Examples:  []string{"object thickness . 0.05"},
	},
	{
		Scope:     "object",
		Operation: "linekind",
		ShortDesc: "Change a line dash pattern",
		LongDesc:  "Sets the dash pattern of a line and, optionally, its tiling.",
		Arguments: []string{"object: Object identifier", "line_kind: solid, dashed, dashed25, dashed50, dashed75 or dashed100", "tiling: (Optional) Pattern length"},
		Examples:  []string{"object linekind . dashed 0.2"},
	},
	{
		Scope:     "object",
		Operation: "move",
		ShortDesc: "Move an object",
		LongDesc:  "Moves an object to a new position.",
		Arguments: []string{"object: Object identifier", "x,y: New position"},
		Examples:  []string{"object move . 2,2"},
	},
	{
		Scope:     "object",
		Operation: "glide",
		ShortDesc: "Move an object over time",
		LongDesc:  "Moves an object to a new position over the given duration.",
		Arguments: []string{"object: Object identifier", "x,y: Target position", "ms: Duration in milliseconds"},
		Examples:  []string{"object glide . 4,0 500"},
	},
	{
		Scope:     "object",
		Operation: "resize",
		ShortDesc: "Scale an object over time",
		LongDesc:  "Scales an object by the given factors over the given duration.",
		Arguments: []string{"object: Object identifier", "sx,sy: Scale factors", "ms: Duration in milliseconds"},
		Examples:  []string{"object resize . 2,2 300"},
	},
	{
		Scope:     "object",
		Operation: "fade",
		ShortDesc: "Fade an object",
		LongDesc:  "Changes the opacity of an object over the given duration.",
		Arguments: []string{"object: Object identifier", "alpha: Target opacity between 0 and 1", "ms: Duration in milliseconds"},
		Examples:  []string{"object fade . 0 1000"},
	},
	{
		Scope:     "object",
		Operation: "delete",
		ShortDesc: "Delete an object",
		LongDesc:  "Deletes an object, immediately or after a delay.",
		Arguments: []string{"object: Object identifier", "delay_ms: (Optional) Delay in milliseconds"},
		Examples:  []string{"object delete .", "object delete a1b2 2000"},
	},
	{
		Scope:     "object",
		Operation: "rotate",
		ShortDesc: "Rotate an object",
		LongDesc:  "Sets the rotation of an object. A single angle turns it around the surface normal.",
		Arguments: []string{"object: Object identifier", "degrees|x,y,z: Angle in degrees, or euler angles"},
		Examples:  []string{"object rotate . 45", "object rotate a1b2 0,30,90"},
	},
	{
		Scope:     "object",
		Operation: "copy",
		ShortDesc: "Copy an object",
		LongDesc:  "Puts a copy of an object on the clipboard of the session.",
		Arguments: []string{"object: Object identifier"},
		Examples:  []string{"object copy ."},
	},
	{
		Scope:     "object",
		Operation: "cut",
		ShortDesc: "Cut an object",
		LongDesc:  "Puts a copy of an object on the clipboard and deletes it. Cutting a node deletes its subtree.",
		Arguments: []string{"object: Object identifier"},
		Examples:  []string{"object cut a1b2"},
	},
	{
		Scope:     "object",
		Operation: "paste",
		ShortDesc: "Paste the clipboard object",
		LongDesc:  "Places a copy of the clipboard object on the current surface with a new identifier, on top of its page. Select another surface first to paste there.",
		Arguments: []string{"x,y: (Optional) Position of the copy", "page: (Optional) Page of the copy"},
		Examples:  []string{"object paste", "object paste 2,3", "object paste 2,3 1"},
	},
	{
		Scope:     "layer",
		Operation: "order",
		ShortDesc: "Set an object layer order",
		LongDesc:  "Moves an object to another layer order. Occupied orders are shifted.",
		Arguments: []string{"object: Object identifier", "order: Layer order"},
		Examples:  []string{"layer order . 0.5"},
	},
	{
		Scope:     "layer",
		Operation: "list",
		ShortDesc: "List layer orders",
		LongDesc:  "Lists the objects of a page by layer order. Defaults to the current page.",
		Arguments: []string{"page: (Optional) Page index"},
		Examples:  []string{"layer list", "layer list 2"},
	},
	{
		Scope:     "page",
		Operation: "switch",
		ShortDesc: "Switch page",
		LongDesc:  "Makes another page current. Objects are drawn on the current page.",
		Arguments: []string{"page: Page index"},
		Examples:  []string{"page switch 2"},
	},
	{
		Scope:     "page",
		Operation: "add",
		ShortDesc: "Add a page",
		LongDesc:  "Appends an empty page to the selected surface.",
		Examples:  []string{"page add"},
	},
	{
		Scope:     "page",
		Operation: "clear",
		ShortDesc: "Clear a page",
		LongDesc:  "Removes every object from a page. Defaults to the current page.",
		Arguments: []string{"page: (Optional) Page index"},
		Examples:  []string{"page clear", "page clear 1"},
	},
	{
		Scope:     "page",
		Operation: "move",
		ShortDesc: "Move an object to a page",
		LongDesc:  "Moves an object to another page, on top of that page's objects.",
		Arguments: []string{"object: Object identifier", "page: Page index"},
		Examples:  []string{"page move . 2"},
	},
	{
		Scope:     "page",
		Operation: "list",
		ShortDesc: "List pages",
		LongDesc:  "Lists the pages of the selected surface and their object counts.",
		Examples:  []string{"page list"},
	},
	{
		Scope:     "page",
		Operation: "export",
		ShortDesc: "Render a page",
		LongDesc:  "Renders a page to a PNG file in the export directory.",
		Arguments: []string{"page: Page index", "filename.png: Output file"},
		Examples:  []string{"page export 1 board.png"},
	},
	{
		Scope:     "file",
		Operation: "export",
		ShortDesc: "Export surfaces to a file",
		LongDesc:  "Writes the selected surface to a JSON, XML or YAML file in the save directory. The format follows the file extension.",
		Arguments: []string{"filename: Output file"},
		Options:   []string{"--all: Export every open surface"},
		Examples:  []string{"file export board.json", "file export all.yaml --all"},
	},
	{
		Scope:     "file",
		Operation: "import",
		ShortDesc: "Import surfaces from a file",
		LongDesc:  "Reads surfaces from a JSON, XML or YAML file and selects the first one.",
		Arguments: []string{"filename: Input file"},
		Examples:  []string{"file import board.json"},
	},
	{
		Scope:     "context",
		Operation: "show",
		ShortDesc: "Show the drawing context",
		LongDesc:  "Shows the style applied to new objects of this session.",
		Examples:  []string{"context show"},
	},
	{
		Scope:     "context",
		Operation: "color",
		ShortDesc: "Set the drawing color",
		LongDesc:  "Sets the color of new lines, shapes and texts.",
		Arguments: []string{"color: #rrggbb or #rrggbbaa"},
		Examples:  []string{"context color #0000ff"},
	},
	{
		Scope:     "context",
		Operation: "secondary",
		ShortDesc: "Set the second color",
		LongDesc:  "Sets the second color used by gradient and two-dashed lines.",
		Arguments: []string{"color: #rrggbb or #rrggbbaa"},
		Examples:  []string{"context secondary #ff8800"},
	},
	{
		Scope:     "context",
		Operation: "colorkind",
		ShortDesc: "Set the line color kind",
		LongDesc:  "Sets how new lines are colored.",
		Arguments: []string{"color_kind: monochrome, gradient or two-dashed"},
		Examples:  []string{"context colorkind gradient"},
	},
	{
		Scope:     "context",
		Operation: "thickness",
		ShortDesc: "Set the line thickness",
		LongDesc:  "Sets the thickness of new lines.",
		Arguments: []string{"thickness: Positive number"},
		Examples:  []string{"context thickness 0.02"},
	},
	{
		Scope:     "context",
		Operation: "linekind",
		ShortDesc: "Set the line dash pattern",
		LongDesc:  "Sets the dash pattern of new lines and, optionally, its tiling.",
		Arguments: []string{"line_kind: solid, dashed, dashed25, dashed50, dashed75 or dashed100", "tiling: (Optional) Pattern length"},
		Examples:  []string{"context linekind dashed50"},
	},
	{
		Scope:     "context",
		Operation: "fill",
		ShortDesc: "Fill closed lines",
		LongDesc:  "Switches the filling of closed lines and shapes, optionally with a fill color.",
		Arguments: []string{"on|off: Fill switch", "color: (Optional) Fill color"},
		Examples:  []string{"context fill on #ffff00", "context fill off"},
	},
	{
		Scope:     "context",
		Operation: "font",
		ShortDesc: "Set the font",
		LongDesc:  "Sets the size and, optionally, the styles of new texts.",
		Arguments: []string{"size: Font size", "styles: (Optional) normal or a '+' joined list of bold, italic, underline and strike"},
		Examples:  []string{"context font 0.4", "context font 0.6 bold+italic"},
	},
	{
		Scope:     "context",
		Operation: "reset",
		ShortDesc: "Reset the drawing context",
		LongDesc:  "Restores the configured defaults.",
		Examples:  []string{"context reset"},
	},
	{
		Scope:     "system",
		Operation: "status",
		ShortDesc: "Show session status",
		LongDesc:  "Shows the participant, open surfaces and running transitions.",
		Examples:  []string{"system status"},
	},
	{
		Scope:     "system",
		Operation: "exit",
		ShortDesc: "Exit the program",
		LongDesc:  "Exits the Inkboard program.",
		Examples:  []string{"system exit", "exit"},
	},
	{
		Scope:     "system",
		Operation: "quit",
		ShortDesc: "Quit the program",
		LongDesc:  "Quits the Inkboard program. Equivalent to 'system exit'.",
		Examples:  []string{"system quit", "quit"},
	},
}
