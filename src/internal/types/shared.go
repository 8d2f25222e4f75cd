package types

// ClientConfig describes how to launch and initialize one language server.
// The command, arguments and environment are supplied by the caller; this
// package never decides what binary to run.
type ClientConfig struct {
	Command               string
	Args                  []string
	Env                   map[string]string
	WorkingDir            string
	InitializationOptions interface{}
	Settings              interface{}
}
