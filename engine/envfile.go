package engine

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/lakeward/deckhand/fleet"
)

// The environment file is the single piece of cluster state living on a
// node. Service scripts source it; rewriting it and restarting the services
// is how configuration changes propagate.
const envTemplate = `# Generated by deckhand. Manual edits are overwritten on configure.
export DECKHAND_CLUSTER={{ .Cluster | quote }}
export DECKHAND_NODE={{ .Node.Name | quote }}
export COORDINATOR_HOST={{ .Coordinator.Addr | quote }}
export COORDINATOR_URL={{ printf "%s:%d" .Coordinator.Addr .Port | quote }}
{{- range $key, $value := .Extra }}
export {{ $key }}={{ $value | quote }}
{{- end }}
`

type envData struct {
	Cluster     string
	Node        fleet.Node
	Coordinator fleet.Node
	Port        int
	Extra       map[string]string
}

func (e *Engine) renderEnv(node fleet.Node, coordinator fleet.Node) ([]byte, error) {
	tmpl, err := template.New("env").Funcs(sprig.TxtFuncMap()).Parse(envTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, envData{
		Cluster:     e.config.ClusterName,
		Node:        node,
		Coordinator: coordinator,
		Port:        e.config.ServicePort,
		Extra:       e.config.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render environment file: %w", err)
	}
	return buf.Bytes(), nil
}
