package deployfile

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type UnmarshalError struct {
	error
	Source string
}

// Read loads, defaults, and validates the deployment file.
func Read(file string) (*Deployfile, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	deployfile := &Deployfile{}
	decoder := yaml.NewDecoder(bytes.NewReader(buf))
	decoder.KnownFields(true)
	if err := decoder.Decode(deployfile); err != nil {
		return nil, UnmarshalError{fmt.Errorf("unmarshal: %w", err), string(buf)}
	}

	deployfile.applyDefaults()
	if err := deployfile.Validate(); err != nil {
		return nil, UnmarshalError{fmt.Errorf("validate: %w", err), string(buf)}
	}
	return deployfile, nil
}

func (deployfile *Deployfile) applyDefaults() {
	if deployfile.SSH.Port == 0 {
		deployfile.SSH.Port = 22
	}
	if deployfile.Provisioning.Attempts == 0 {
		deployfile.Provisioning.Attempts = 3
	}
	if deployfile.Provisioning.PollAttempts == 0 {
		deployfile.Provisioning.PollAttempts = 10
	}
	if deployfile.Provisioning.PollInterval == "" {
		deployfile.Provisioning.PollInterval = "15s"
	}
	if deployfile.Provisioning.BootstrapConcurrency == 0 {
		deployfile.Provisioning.BootstrapConcurrency = 8
	}
}
