package config

import (
	"fmt"
	"os"
)

// Template returns a commented lurk.toml holding the default values.
func Template() string {
	return lurkTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(lurkTemplate), 0o600)
}

const lurkTemplate = `# Enable the command extension (message type 15). Both peers must agree.
command_extension = false

# Log every encoded and decoded message.
trace = false

# Largest accepted message, type byte included. 0 disables the limit.
max_message_bytes = 131072

connect_timeout = "5s"
# "0s" waits forever.
read_timeout = "0s"
write_timeout = "15s"

# Write a msgpack transcript of the session to this path.
transcript = ""
`
