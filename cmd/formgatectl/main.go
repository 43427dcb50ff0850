// formgatectl: CLI de consulta contra la API de solo lectura del relay.
package main

import (
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

func (c *client) get(path string) (int, []byte, error) {
	url := strings.TrimRight(c.BaseURL, "/") + path
	resp, err := c.HTTP.Get(url)
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
		baseURL = envOr("FORMGATE_URL", "http://localhost:8080")
		out     = envOr("FORMGATE_OUT", "json")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "formgatectl",
		Short: "CLI de consulta para formgate (API /api/v1)",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env FORMGATE_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "formato de salida: json|text (env FORMGATE_OUT)")

	newClient := func() *client {
		return &client{BaseURL: baseURL, OutFormat: out, HTTP: &http.Client{Timeout: timeout}}
	}

	appsCmd := &cobra.Command{
		Use:   "apps",
		Short: "Lista los appids registrados",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			status, body, err := c.get("/api/v1/apps")
			if err != nil {
				return err
			}
			c.print(status, body)
			return nil
		},
	}

	appCmd := &cobra.Command{
		Use:   "app <appid>",
		Short: "Muestra la configuración de una aplicación",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			status, body, err := c.get("/api/v1/app/" + args[0])
			if err != nil {
				return err
			}
			c.print(status, body)
			return nil
		},
	}

	var keyPath string
	storeCmd := &cobra.Command{
		Use:   "store <appid>",
		Short: "Vuelca el delivery log de una aplicación",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			path := "/api/v1/app/" + args[0] + "/store"
			if keyPath != "" {
				path += "/" + strings.Trim(keyPath, "/")
			}
			status, body, err := c.get(path)
			if err != nil {
				return err
			}
			c.print(status, body)
			return nil
		},
	}
	storeCmd.Flags().StringVar(&keyPath, "key-path", "", "key path a extraer de cada entrada (ej. include_vars/confirm)")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Chequea el estado del servicio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			status, body, err := c.get("/healthz")
			if err != nil {
				return err
			}
			c.print(status, body)
			return nil
		},
	}

	root.AddCommand(appsCmd, appCmd, storeCmd, healthCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
