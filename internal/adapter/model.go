package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"howett.net/plist"
)

// modelQuery prints the hardware overview as an XML property list on macOS.
var modelQuery = []string{"system_profiler", "-detailLevel", "mini", "-xml", "SPHardwareDataType"}

// DetectModelIdentifier asks the host for its model identifier, which native
// bundles are keyed on. It only works where system_profiler exists.
func DetectModelIdentifier(ctx context.Context) (string, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, modelQuery[0], modelQuery[1:]...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("query model identifier: %w", err)
	}
	return parseModelIdentifier(stdout.Bytes())
}

type hardwareReport struct {
	Items []struct {
		MachineModel string `plist:"machine_model"`
	} `plist:"_items"`
}

// parseModelIdentifier reads machine_model from system_profiler output.
func parseModelIdentifier(data []byte) (string, error) {
	var reports []hardwareReport
	if _, err := plist.Unmarshal(data, &reports); err != nil {
		return "", fmt.Errorf("parse hardware report: %w", err)
	}
	for _, r := range reports {
		for _, item := range r.Items {
			if model := strings.TrimSpace(item.MachineModel); model != "" {
				return model, nil
			}
		}
	}
	return "", errors.New("hardware report has no machine_model")
}
