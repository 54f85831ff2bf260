package commands_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fivetwenty-io/pokeapi/cmd/pokeapi/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// fakeService serves a few berries and a pokemon with a species reference.
type fakeService struct {
	server *httptest.Server

	mutex    sync.Mutex
	requests []string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()

	service := &fakeService{}
	service.server = httptest.NewServer(http.HandlerFunc(service.serve))
	t.Cleanup(service.server.Close)

	return service
}

func (s *fakeService) baseURL() string {
	return s.server.URL + "/api/v2"
}

func (s *fakeService) count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.requests)
}

func (s *fakeService) serve(writer http.ResponseWriter, request *http.Request) {
	s.mutex.Lock()
	s.requests = append(s.requests, request.URL.RequestURI())
	s.mutex.Unlock()

	base := s.baseURL()

	listing := func(entries ...string) string {
		results := make([]string, 0, len(entries))
		for _, entry := range entries {
			parts := strings.SplitN(entry, "/", 3)
			results = append(results, fmt.Sprintf(`{"name":%q,"url":"%s/%s/%s/"}`, parts[2], base, parts[0], parts[1]))
		}

		return fmt.Sprintf(`{"count":%d,"next":null,"previous":null,"results":[%s]}`, len(results), strings.Join(results, ","))
	}

	bodies := map[string]string{
		"/api/v2/berry?limit=100000": listing("berry/1/cheri", "berry/2/chesto", "berry/3/pecha"),
		"/api/v2/berry/cheri":        `{"id":1,"name":"cheri","growth_time":3,"firmness":{"name":"soft","url":"` + base + `/berry-firmness/2/"}}`,
		"/api/v2/berry/chesto":       `{"id":2,"name":"chesto","growth_time":3}`,
		"/api/v2/berry/2":            `{"id":2,"name":"chesto","growth_time":3}`,
		"/api/v2/pokemon?limit=100000": listing("pokemon/285/shroomish", "pokemon/286/breloom"),
		"/api/v2/pokemon/breloom": `{"id":286,"name":"breloom","types":[{"slot":1,"type":{"name":"grass","url":"` +
			base + `/type/12/"}}],"species":{"name":"breloom","url":"` + base + `/pokemon-species/286/"}}`,
		"/api/v2/pokemon-species?limit=100000": listing("pokemon-species/286/breloom"),
		"/api/v2/pokemon-species/286":          `{"id":286,"name":"breloom","capture_rate":90}`,
	}

	body, ok := bodies[request.URL.RequestURI()]
	if !ok {
		http.NotFound(writer, request)

		return
	}

	_, _ = writer.Write([]byte(body))
}

// run executes the root command with args against service, with the cache and
// config file under dir, and returns stdout.
func run(t *testing.T, service *fakeService, dir string, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer

	root := commands.NewRootCommand("1.2.3", "abc123", "2024-01-01")
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})

	global := []string{
		"--config", filepath.Join(dir, "config.yml"),
		"--cache-dir", filepath.Join(dir, "cache"),
		"--retries", "0",
	}
	if service != nil {
		global = append(global, "--base-url", service.baseURL())
	}

	root.SetArgs(append(args, global...))

	err := root.Execute()

	return out.String(), err
}
