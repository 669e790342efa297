package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/lvq/pkg/api/rest/middleware"
)

const version = "1.0.0"

var (
	serverAddr string
	authToken  string
	timeout    time.Duration
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "create":
		handleCreate(os.Args[2:])
	case "info":
		handleInfo(os.Args[2:])
	case "set":
		handleSet(os.Args[2:])
	case "randomize":
		handleRandomize(os.Args[2:])
	case "classify":
		handleClassify(os.Args[2:])
	case "best":
		handleBest(os.Args[2:])
	case "train":
		handleTrain(os.Args[2:])
	case "test":
		handleTest(os.Args[2:])
	case "store":
		handleStore(os.Args[2:])
	case "load":
		handleLoad(os.Args[2:])
	case "health":
		handleHealth(os.Args[2:])
	case "token":
		handleToken(os.Args[2:])
	case "version":
		fmt.Printf("lvq-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", "http://localhost:8080", "server base URL")
	fs.StringVar(&authToken, "token", "", "bearer token")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return fs
}

// request performs one JSON call and decodes the response into a
// generic map for printing.
func request(method, path string, body interface{}) (map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverAddr+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if len(data) > 0 {
		var any interface{}
		if err := json.Unmarshal(data, &any); err != nil {
			return nil, fmt.Errorf("bad response: %s", data)
		}
		if m, ok := any.(map[string]interface{}); ok {
			out = m
		} else {
			out = map[string]interface{}{"result": any}
		}
	}

	if resp.StatusCode >= 400 {
		if out != nil {
			if msg, ok := out["error"].(string); ok {
				return nil, fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
			}
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return out, nil
}

func printResult(result map[string]interface{}) {
	if result == nil {
		fmt.Println("ok")
		return
	}
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parseVector parses a comma-separated list of numbers.
func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad component %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// loadSamples reads a JSON array of samples from a file. Elements are
// either bare vectors or {"vector": [...], "label": n} objects.
func loadSamples(path string) ([]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var samples []interface{}
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("bad samples file: %w", err)
	}
	return samples, nil
}

func handleCreate(args []string) {
	fs := newFlagSet("create")
	dim := fs.Int("dim", 0, "vector dimension")
	size := fs.Int("size", 0, "number of prototypes")
	fs.Parse(args)

	result, err := request(http.MethodPost, "/v1/codebooks",
		map[string]interface{}{"dim": *dim, "size": *size})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleInfo(args []string) {
	fs := newFlagSet("info")
	handle := fs.String("handle", "", "codebook handle")
	fs.Parse(args)

	result, err := request(http.MethodGet, "/v1/codebooks/"+*handle, nil)
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleSet(args []string) {
	fs := newFlagSet("set")
	handle := fs.String("handle", "", "codebook handle")
	index := fs.Int("index", 0, "prototype index")
	vector := fs.String("vector", "", "comma-separated components")
	fs.Parse(args)

	v, err := parseVector(*vector)
	if err != nil {
		fail(err)
	}
	result, err := request(http.MethodPut,
		fmt.Sprintf("/v1/codebooks/%s/prototypes/%d", *handle, *index),
		map[string]interface{}{"vector": v})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleRandomize(args []string) {
	fs := newFlagSet("randomize")
	handle := fs.String("handle", "", "codebook handle")
	seed := fs.Int64("seed", 0, "PRNG seed (0 = time-derived)")
	fs.Parse(args)

	result, err := request(http.MethodPost, "/v1/codebooks/"+*handle+"/randomize",
		map[string]interface{}{"seed": *seed})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleClassify(args []string) {
	fs := newFlagSet("classify")
	handle := fs.String("handle", "", "codebook handle")
	vector := fs.String("vector", "", "comma-separated components")
	fs.Parse(args)

	v, err := parseVector(*vector)
	if err != nil {
		fail(err)
	}
	result, err := request(http.MethodPost, "/v1/codebooks/"+*handle+"/classify",
		map[string]interface{}{"vector": v})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleBest(args []string) {
	fs := newFlagSet("best")
	handle := fs.String("handle", "", "codebook handle")
	vector := fs.String("vector", "", "comma-separated components")
	k := fs.Int("k", 0, "number of neighbours (0 = all)")
	fs.Parse(args)

	v, err := parseVector(*vector)
	if err != nil {
		fail(err)
	}
	result, err := request(http.MethodPost, "/v1/codebooks/"+*handle+"/best",
		map[string]interface{}{"vector": v, "k": *k})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleTrain(args []string) {
	fs := newFlagSet("train")
	handle := fs.String("handle", "", "codebook handle")
	file := fs.String("samples", "", "JSON samples file")
	mode := fs.String("mode", "auto", "auto, supervised or unsupervised")
	epochs := fs.Int("epochs", 0, "training epochs (0 = server default)")
	window := fs.Int("window", 0, "early-stop window (0 = server default)")
	maxIter := fs.Int("max-iter", 0, "update cap (0 = server default)")
	alpha := fs.Float64("alpha", 0, "initial learning rate (0 = server default)")
	seed := fs.Int64("seed", 0, "shuffle seed (0 = time-derived)")
	fs.Parse(args)

	samples, err := loadSamples(*file)
	if err != nil {
		fail(err)
	}

	path := "/v1/codebooks/" + *handle + "/train"
	switch *mode {
	case "auto":
	case "supervised", "unsupervised":
		path += "/" + *mode
	default:
		fail(fmt.Errorf("unknown mode %q", *mode))
	}

	result, err := request(http.MethodPost, path, map[string]interface{}{
		"samples": samples, "epochs": *epochs, "window": *window,
		"max_iter": *maxIter, "alpha": *alpha, "seed": *seed,
	})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleTest(args []string) {
	fs := newFlagSet("test")
	handle := fs.String("handle", "", "codebook handle")
	file := fs.String("samples", "", "JSON samples file")
	kind := fs.String("kind", "classifier", "classifier or clustering")
	fs.Parse(args)

	samples, err := loadSamples(*file)
	if err != nil {
		fail(err)
	}
	if *kind != "classifier" && *kind != "clustering" {
		fail(fmt.Errorf("unknown test kind %q", *kind))
	}

	result, err := request(http.MethodPost, "/v1/codebooks/"+*handle+"/test/"+*kind,
		map[string]interface{}{"samples": samples})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleStore(args []string) {
	fs := newFlagSet("store")
	handle := fs.String("handle", "", "codebook handle")
	path := fs.String("path", "", "blob path relative to the server data dir")
	fs.Parse(args)

	result, err := request(http.MethodPost, "/v1/codebooks/"+*handle+"/store",
		map[string]interface{}{"path": *path})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleLoad(args []string) {
	fs := newFlagSet("load")
	path := fs.String("path", "", "blob path relative to the server data dir")
	fs.Parse(args)

	result, err := request(http.MethodPost, "/v1/codebooks/load",
		map[string]interface{}{"path": *path})
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleHealth(args []string) {
	fs := newFlagSet("health")
	fs.Parse(args)

	result, err := request(http.MethodGet, "/v1/health", nil)
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func handleToken(args []string) {
	fs := newFlagSet("token")
	user := fs.String("user", "dev", "user id claim")
	roles := fs.String("roles", "writer", "comma-separated roles")
	secret := fs.String("secret", "", "JWT signing secret")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	fs.Parse(args)

	if *secret == "" {
		fail(fmt.Errorf("a signing secret is required"))
	}

	token, err := middleware.GenerateToken(*user, strings.Split(*roles, ","), *secret, *ttl)
	if err != nil {
		fail(err)
	}
	fmt.Println(token)
}

func showUsage() {
	fmt.Println(`lvq-cli - LVQ server command line client

Usage: lvq-cli <command> [flags]

Commands:
  create     create a codebook (-dim, -size)
  info       show codebook info (-handle)
  set        place a prototype (-handle, -index, -vector)
  randomize  randomize prototypes (-handle, -seed)
  classify   classify a vector (-handle, -vector)
  best       weighted nearest prototypes (-handle, -vector, -k)
  train      train from a samples file (-handle, -samples, -mode, ...)
  test       evaluate from a samples file (-handle, -samples, -kind)
  store      persist a codebook (-handle, -path)
  load       restore a codebook (-path)
  health     server health
  token      mint a development JWT (-user, -roles, -secret, -ttl)
  version    print version

Global flags (every command): -server, -token, -timeout`)
}
