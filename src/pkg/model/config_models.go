// Package model defines the data structures used throughout the inkboard application.
package model

// Config holds the application settings loaded by the config package.
type Config struct {
	DatabaseType      string   `json:"database_type" toml:"database_type"`
	DatabaseDir       string   `json:"database_dir" toml:"database_dir"`
	DatabaseFile      string   `json:"database_file" toml:"database_file"`
	LogFolder         string   `json:"log_folder" toml:"log_folder"`
	CommandLog        string   `json:"command_log" toml:"command_log"`
	ErrorLog          string   `json:"error_log" toml:"error_log"`
	InfoLog           string   `json:"info_log" toml:"info_log"`
	HistoryFile       string   `json:"history_file" toml:"history_file"`
	BlobDir           string   `json:"blob_dir" toml:"blob_dir"`
	SaveDir           string   `json:"save_dir" toml:"save_dir"`
	ExportDir         string   `json:"export_dir" toml:"export_dir"`
	Participant       string   `json:"participant" toml:"participant"`
	ReplicationListen string   `json:"replication_listen" toml:"replication_listen"`
	ReplicationPeers  []string `json:"replication_peers" toml:"replication_peers"`
	OrderEpsilon      float32  `json:"order_epsilon" toml:"order_epsilon"`
	PixelsPerUnit     float32  `json:"pixels_per_unit" toml:"pixels_per_unit"`
	DefaultThickness  float32  `json:"default_thickness" toml:"default_thickness"`
	DefaultColor      string   `json:"default_color" toml:"default_color"`
	DefaultFontSize   float32  `json:"default_font_size" toml:"default_font_size"`
}
