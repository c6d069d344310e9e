package config

// TransportType defines MCP server transport types.
type TransportType string

const (
	// TransportTypeStdio uses subprocess communication via stdin/stdout.
	TransportTypeStdio TransportType = "stdio"
	// TransportTypeStreamableHTTP uses streamable HTTP JSON-RPC.
	TransportTypeStreamableHTTP TransportType = "streamable_http"
)

// IsValid checks if the transport type is valid.
func (t TransportType) IsValid() bool {
	return t == TransportTypeStdio || t == TransportTypeStreamableHTTP
}
