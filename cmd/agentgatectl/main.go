package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("AGENTGATE_URL", "http://localhost:8080")
		out     = envOr("AGENTGATE_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "agentgatectl",
		Short: "CLI admin para agentgate (vía /api/admin)",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servidor (env AGENTGATE_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL = baseURL
		cl.OutFormat = out
	}

	// ── agents ──
	agentsCmd := &cobra.Command{Use: "agents", Short: "Gestión de agents"}

	var agEmail, agName, agID string
	agentsCreate := &cobra.Command{
		Use:   "create",
		Short: "Crear un agent (el secret se muestra UNA sola vez)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agEmail == "" {
				return fmt.Errorf("falta --email")
			}
			payload := map[string]any{"user_email": agEmail, "user_name": agName}
			if agID != "" {
				payload["agent_id"] = agID
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/api/admin/agents", b)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	agentsCreate.Flags().StringVar(&agEmail, "email", "", "email del dueño del agent")
	agentsCreate.Flags().StringVar(&agName, "name", "", "nombre del dueño")
	agentsCreate.Flags().StringVar(&agID, "id", "", "agent_id explícito (opcional)")

	agentsList := &cobra.Command{
		Use:   "list",
		Short: "Listar agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/admin/agents", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	agentsGet := &cobra.Command{
		Use:   "get <agent_id>",
		Short: "Ver un agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/admin/agents/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	agentsDelete := &cobra.Command{
		Use:   "delete <agent_id>",
		Short: "Borrar un agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("DELETE", "/api/admin/agents/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	agentsCmd.AddCommand(agentsCreate, agentsList, agentsGet, agentsDelete)

	// ── clients ──
	clientsCmd := &cobra.Command{Use: "clients", Short: "Gestión de clients OAuth"}

	var clName, clID string
	var clRedirects []string
	clientsCreate := &cobra.Command{
		Use:   "create",
		Short: "Crear un client (el secret se muestra UNA sola vez)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clName == "" || len(clRedirects) == 0 {
				return fmt.Errorf("faltan --name y/o --redirect")
			}
			payload := map[string]any{"client_name": clName, "redirect_uris": clRedirects}
			if clID != "" {
				payload["client_id"] = clID
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/api/admin/clients", b)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	clientsCreate.Flags().StringVar(&clName, "name", "", "nombre del client")
	clientsCreate.Flags().StringArrayVar(&clRedirects, "redirect", nil, "redirect URI permitido (repetible)")
	clientsCreate.Flags().StringVar(&clID, "id", "", "client_id explícito (opcional)")

	clientsList := &cobra.Command{
		Use:   "list",
		Short: "Listar clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/admin/clients", nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	clientsGet := &cobra.Command{
		Use:   "get <client_id>",
		Short: "Ver un client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("GET", "/api/admin/clients/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	var updName string
	var updRedirects []string
	clientsUpdate := &cobra.Command{
		Use:   "update <client_id>",
		Short: "Actualizar nombre y/o redirects de un client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{}
			if updName != "" {
				payload["client_name"] = updName
			}
			if len(updRedirects) > 0 {
				payload["redirect_uris"] = updRedirects
			}
			if len(payload) == 0 {
				return fmt.Errorf("nada para actualizar (usa --name / --redirect)")
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("PUT", "/api/admin/clients/"+args[0], b)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	clientsUpdate.Flags().StringVar(&updName, "name", "", "nuevo nombre")
	clientsUpdate.Flags().StringArrayVar(&updRedirects, "redirect", nil, "nuevo set de redirect URIs (repetible)")

	clientsDelete := &cobra.Command{
		Use:   "delete <client_id>",
		Short: "Borrar un client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.do("DELETE", "/api/admin/clients/"+args[0], nil)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	clientsCmd.AddCommand(clientsCreate, clientsList, clientsGet, clientsUpdate, clientsDelete)

	root.AddCommand(agentsCmd, clientsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
