package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/therealutkarshpriyadarshi/lvq/pkg/config"
	"github.com/therealutkarshpriyadarshi/lvq/pkg/lvq"
	"github.com/therealutkarshpriyadarshi/lvq/pkg/observability"
)

// Handler implements the HTTP embedding surface over a handle registry.
type Handler struct {
	registry *Registry
	engine   config.EngineConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewHandler creates a new REST API handler
func NewHandler(registry *Registry, engine config.EngineConfig, logger *observability.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		registry: registry,
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
	}
}

// sampleJSON accepts both sample shapes the surface understands: a bare
// array is an unlabeled vector, an object carries a vector plus an
// optional label.
type sampleJSON struct {
	Vector []float64
	Label  *int
}

func (s *sampleJSON) UnmarshalJSON(data []byte) error {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return json.Unmarshal(data, &s.Vector)
		default:
			var obj struct {
				Vector []float64 `json:"vector"`
				Label  *int      `json:"label"`
			}
			if err := json.Unmarshal(data, &obj); err != nil {
				return err
			}
			s.Vector = obj.Vector
			s.Label = obj.Label
			return nil
		}
	}
	return fmt.Errorf("empty sample")
}

type createRequest struct {
	Dim  int `json:"dim"`
	Size int `json:"size"`
}

type vectorRequest struct {
	Vector []float64 `json:"vector"`
}

type bestRequest struct {
	Vector []float64 `json:"vector"`
	K      int       `json:"k"`
}

type randomizeRequest struct {
	Seed int64 `json:"seed"`
}

type trainRequest struct {
	Samples []sampleJSON `json:"samples"`
	Epochs  int          `json:"epochs"`
	Window  int          `json:"window"`
	MaxIter int          `json:"max_iter"`
	Alpha   float64      `json:"alpha"`
	Seed    int64        `json:"seed"`
}

type testRequest struct {
	Samples []sampleJSON `json:"samples"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type handleResponse struct {
	Handle string `json:"handle"`
}

type codebookInfo struct {
	Handle string `json:"handle"`
	Dim    int    `json:"dim"`
	Size   int    `json:"size"`
	Labels []int  `json:"labels,omitempty"`
}

type classifyResponse struct {
	Cluster int `json:"cluster"`
}

type bestEntry struct {
	Cluster int     `json:"cluster"`
	Weight  float64 `json:"weight"`
}

type trainResponse struct {
	Mode    string  `json:"mode"`
	Samples int     `json:"samples"`
	Rate    float64 `json:"learn_rate,omitempty"`
}

type classStats struct {
	Class     int     `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

type classifierStatsResponse struct {
	Handle   string       `json:"handle"`
	Kind     string       `json:"kind"`
	Total    int          `json:"total"`
	Accuracy float64      `json:"accuracy"`
	MacroF1  float64      `json:"macro_f1"`
	Classes  []classStats `json:"classes"`
	Matrix   [][]int      `json:"matrix"`
}

type clusterStats struct {
	Cluster  int     `json:"cluster"`
	Count    int     `json:"count"`
	AvgError float64 `json:"avg_error"`
}

type clusteringStatsResponse struct {
	Handle   string         `json:"handle"`
	Kind     string         `json:"kind"`
	Total    int            `json:"total"`
	AvgError float64        `json:"avg_error"`
	Clusters []clusterStats `json:"clusters"`
}

// CreateCodebook handles POST /v1/codebooks
func (h *Handler) CreateCodebook(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	cb, err := lvq.New(req.Dim, req.Size)
	if err != nil {
		h.writeEngineError(w, "create", err)
		return
	}

	handle, err := h.registry.AddCodebook(cb)
	if err != nil {
		h.writeEngineError(w, "create", err)
		return
	}
	h.metrics.CodebooksActive.Set(float64(h.registry.CodebookCount()))
	h.logger.Debug("codebook created", map[string]interface{}{
		"handle": handle, "dim": req.Dim, "size": req.Size,
	})

	writeJSON(w, handleResponse{Handle: handle}, http.StatusCreated)
}

// GetCodebook handles GET /v1/codebooks/{handle}
func (h *Handler) GetCodebook(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")
	entry, ok := h.registry.Codebook(handle)
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	entry.mu.RLock()
	info := codebookInfo{
		Handle: handle,
		Dim:    entry.cb.Dim(),
		Size:   entry.cb.Size(),
		Labels: entry.cb.Labels(),
	}
	entry.mu.RUnlock()

	writeJSON(w, info, http.StatusOK)
}

// DeleteCodebook handles DELETE /v1/codebooks/{handle}
func (h *Handler) DeleteCodebook(w http.ResponseWriter, r *http.Request) {
	if !h.registry.RemoveCodebook(r.PathValue("handle")) {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}
	h.metrics.CodebooksActive.Set(float64(h.registry.CodebookCount()))
	w.WriteHeader(http.StatusNoContent)
}

// SetPrototype handles PUT /v1/codebooks/{handle}/prototypes/{index}
func (h *Handler) SetPrototype(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req vectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	err = entry.cb.Set(req.Vector, index)
	entry.mu.Unlock()
	if err != nil {
		h.writeEngineError(w, "set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPrototype handles GET /v1/codebooks/{handle}/prototypes/{index}
func (h *Handler) GetPrototype(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry.mu.RLock()
	v, err := entry.cb.Get(index)
	entry.mu.RUnlock()
	if err != nil {
		h.writeEngineError(w, "get", err)
		return
	}

	writeJSON(w, vectorRequest{Vector: v}, http.StatusOK)
}

// Randomize handles POST /v1/codebooks/{handle}/randomize
func (h *Handler) Randomize(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	// An absent body means a time-derived seed.
	var req randomizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	entry.cb.SetRandom(req.Seed)
	entry.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// Classify handles POST /v1/codebooks/{handle}/classify
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	var req vectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entry.mu.RLock()
	cluster, err := entry.cb.Classify(req.Vector)
	entry.mu.RUnlock()
	if err != nil {
		h.writeEngineError(w, "classify", err)
		return
	}
	h.metrics.Classifications.Inc()

	writeJSON(w, classifyResponse{Cluster: cluster}, http.StatusOK)
}

// Best handles POST /v1/codebooks/{handle}/best
func (h *Handler) Best(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	var req bestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entry.mu.RLock()
	best, err := entry.cb.Best(req.Vector, req.K)
	entry.mu.RUnlock()
	if err != nil {
		h.writeEngineError(w, "best", err)
		return
	}
	h.metrics.Classifications.Inc()

	out := make([]bestEntry, len(best))
	for i, cw := range best {
		out[i] = bestEntry{Cluster: cw.Cluster, Weight: cw.Weight}
	}
	writeJSON(w, out, http.StatusOK)
}

// trainConfig maps request overrides onto the configured defaults.
func (h *Handler) trainConfig(req trainRequest) lvq.TrainConfig {
	cfg := lvq.TrainConfig{
		Epochs:  h.engine.Epochs,
		Window:  h.engine.Window,
		MaxIter: h.engine.MaxIter,
		Alpha:   h.engine.Alpha,
		Seed:    req.Seed,
	}
	if req.Epochs > 0 {
		cfg.Epochs = req.Epochs
	}
	if req.Window > 0 {
		cfg.Window = req.Window
	}
	if req.MaxIter > 0 {
		cfg.MaxIter = req.MaxIter
	}
	if req.Alpha > 0 {
		cfg.Alpha = req.Alpha
	}
	return cfg
}

// splitSamples partitions the decoded samples by shape.
func splitSamples(samples []sampleJSON) (labeled []lvq.LabeledSample, unlabeled [][]float64) {
	for _, s := range samples {
		if s.Label != nil {
			labeled = append(labeled, lvq.LabeledSample{Vector: s.Vector, Label: *s.Label})
		} else {
			unlabeled = append(unlabeled, s.Vector)
		}
	}
	return labeled, unlabeled
}

// train runs one training call against a codebook. mode is
// "supervised", "unsupervised" or "auto".
func (h *Handler) train(w http.ResponseWriter, r *http.Request, mode string) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	labeled, unlabeled := splitSamples(req.Samples)
	if mode == "auto" {
		switch {
		case len(unlabeled) == 0:
			mode = "supervised"
		case len(labeled) == 0:
			mode = "unsupervised"
		default:
			writeError(w, "sample stream mixes labeled and unlabeled entries", http.StatusBadRequest)
			return
		}
	}

	cfg := h.trainConfig(req)
	start := time.Now()

	entry.mu.Lock()
	var err error
	var rate float64
	switch mode {
	case "supervised":
		if len(unlabeled) > 0 {
			entry.mu.Unlock()
			writeError(w, "supervised training requires labeled samples", http.StatusBadRequest)
			return
		}
		if err = entry.cb.TrainSupervised(labeled, cfg); err == nil {
			rate, err = entry.cb.LearnRate(labeled)
		}
	case "unsupervised":
		if len(labeled) > 0 {
			entry.mu.Unlock()
			writeError(w, "unsupervised training takes bare vectors only", http.StatusBadRequest)
			return
		}
		err = entry.cb.TrainUnsupervised(unlabeled, cfg)
	}
	entry.mu.Unlock()

	if err != nil {
		h.writeEngineError(w, "train", err)
		return
	}

	duration := time.Since(start)
	h.metrics.ObserveTraining(mode, len(req.Samples), duration)
	h.logger.Info("training run completed", map[string]interface{}{
		"mode": mode, "samples": len(req.Samples), "duration": duration,
	})

	writeJSON(w, trainResponse{Mode: mode, Samples: len(req.Samples), Rate: rate}, http.StatusOK)
}

// Train handles POST /v1/codebooks/{handle}/train
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	h.train(w, r, "auto")
}

// TrainSupervised handles POST /v1/codebooks/{handle}/train/supervised
func (h *Handler) TrainSupervised(w http.ResponseWriter, r *http.Request) {
	h.train(w, r, "supervised")
}

// TrainUnsupervised handles POST /v1/codebooks/{handle}/train/unsupervised
func (h *Handler) TrainUnsupervised(w http.ResponseWriter, r *http.Request) {
	h.train(w, r, "unsupervised")
}

// classifierStatsBody renders a stats entry for the wire.
func classifierStatsBody(handle string, st *lvq.ClassifierStats) classifierStatsResponse {
	resp := classifierStatsResponse{
		Handle:   handle,
		Kind:     "classifier",
		Total:    st.Total(),
		Accuracy: st.Accuracy(),
		Matrix:   st.Matrix(),
	}
	resp.MacroF1, _ = st.MacroF1()
	for class := 0; class < st.Classes(); class++ {
		p, _ := st.Precision(class)
		rec, _ := st.Recall(class)
		f, _ := st.F1(class)
		resp.Classes = append(resp.Classes, classStats{Class: class, Precision: p, Recall: rec, F1: f})
	}
	return resp
}

func clusteringStatsBody(handle string, st *lvq.ClusteringStats) clusteringStatsResponse {
	resp := clusteringStatsResponse{
		Handle:   handle,
		Kind:     "clustering",
		Total:    st.Total(),
		AvgError: st.AvgError(),
	}
	for i := 0; i < st.Clusters(); i++ {
		n, _ := st.Count(i)
		e, _ := st.ClusterAvgError(i)
		resp.Clusters = append(resp.Clusters, clusterStats{Cluster: i, Count: n, AvgError: e})
	}
	return resp
}

// TestClassifier handles POST /v1/codebooks/{handle}/test/classifier
func (h *Handler) TestClassifier(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	labeled, unlabeled := splitSamples(req.Samples)
	if len(unlabeled) > 0 {
		writeError(w, "classifier evaluation requires labeled samples", http.StatusBadRequest)
		return
	}

	entry.mu.RLock()
	st, err := entry.cb.TestClassifier(labeled)
	entry.mu.RUnlock()
	if err != nil {
		h.writeEngineError(w, "test_classifier", err)
		return
	}

	handle, err := h.registry.AddStats(&statsEntry{classifier: st})
	if err != nil {
		h.writeEngineError(w, "test_classifier", err)
		return
	}
	h.metrics.StatsActive.Set(float64(h.registry.StatsCount()))

	writeJSON(w, classifierStatsBody(handle, st), http.StatusCreated)
}

// TestClustering handles POST /v1/codebooks/{handle}/test/clustering
func (h *Handler) TestClustering(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	labeled, unlabeled := splitSamples(req.Samples)
	if len(labeled) > 0 {
		writeError(w, "clustering evaluation takes bare vectors only", http.StatusBadRequest)
		return
	}

	entry.mu.RLock()
	st, err := entry.cb.TestClustering(unlabeled)
	entry.mu.RUnlock()
	if err != nil {
		h.writeEngineError(w, "test_clustering", err)
		return
	}

	handle, err := h.registry.AddStats(&statsEntry{clustering: st})
	if err != nil {
		h.writeEngineError(w, "test_clustering", err)
		return
	}
	h.metrics.StatsActive.Set(float64(h.registry.StatsCount()))

	writeJSON(w, clusteringStatsBody(handle, st), http.StatusCreated)
}

// GetStats handles GET /v1/stats/{handle}
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")
	entry, ok := h.registry.Stats(handle)
	if !ok {
		writeError(w, "unknown stats handle", http.StatusNotFound)
		return
	}

	if entry.classifier != nil {
		writeJSON(w, classifierStatsBody(handle, entry.classifier), http.StatusOK)
		return
	}
	writeJSON(w, clusteringStatsBody(handle, entry.clustering), http.StatusOK)
}

// DeleteStats handles DELETE /v1/stats/{handle}
func (h *Handler) DeleteStats(w http.ResponseWriter, r *http.Request) {
	if !h.registry.RemoveStats(r.PathValue("handle")) {
		writeError(w, "unknown stats handle", http.StatusNotFound)
		return
	}
	h.metrics.StatsActive.Set(float64(h.registry.StatsCount()))
	w.WriteHeader(http.StatusNoContent)
}

// StoreCodebook handles POST /v1/codebooks/{handle}/store
func (h *Handler) StoreCodebook(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Codebook(r.PathValue("handle"))
	if !ok {
		writeError(w, "unknown codebook handle", http.StatusNotFound)
		return
	}

	path, err := h.resolvePath(w, r)
	if err != nil {
		return
	}

	entry.mu.RLock()
	err = entry.cb.StoreFile(path)
	entry.mu.RUnlock()
	if err != nil {
		h.writeEngineError(w, "store", err)
		return
	}
	h.metrics.BlobsStored.Inc()
	h.logger.Info("codebook stored", map[string]interface{}{"path": path})

	w.WriteHeader(http.StatusNoContent)
}

// LoadCodebook handles POST /v1/codebooks/load
func (h *Handler) LoadCodebook(w http.ResponseWriter, r *http.Request) {
	path, err := h.resolvePath(w, r)
	if err != nil {
		return
	}

	cb, err := lvq.LoadFile(path)
	if err != nil {
		h.writeEngineError(w, "load", err)
		return
	}

	handle, err := h.registry.AddCodebook(cb)
	if err != nil {
		h.writeEngineError(w, "load", err)
		return
	}
	h.metrics.BlobsLoaded.Inc()
	h.metrics.CodebooksActive.Set(float64(h.registry.CodebookCount()))
	h.logger.Info("codebook loaded", map[string]interface{}{"path": path, "handle": handle})

	writeJSON(w, handleResponse{Handle: handle}, http.StatusCreated)
}

// HealthCheck handles GET /v1/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"codebooks": h.registry.CodebookCount(),
		"stats":     h.registry.StatsCount(),
	}, http.StatusOK)
}

// resolvePath validates a store/load target and anchors it under the
// configured data directory. Absolute paths and parent traversal are
// rejected. On failure the response has already been written.
func (h *Handler) resolvePath(w http.ResponseWriter, r *http.Request) (string, error) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return "", err
	}
	if req.Path == "" || !filepath.IsLocal(req.Path) {
		err := fmt.Errorf("path must be relative to the data directory")
		writeError(w, err.Error(), http.StatusBadRequest)
		return "", err
	}
	return filepath.Join(h.engine.DataDir, req.Path), nil
}

// pathIndex parses the {index} path segment.
func pathIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, fmt.Errorf("invalid prototype index %q", r.PathValue("index"))
	}
	return index, nil
}

// writeEngineError maps an engine error to an HTTP status and records
// it.
func (h *Handler) writeEngineError(w http.ResponseWriter, method string, err error) {
	status := http.StatusInternalServerError
	kind := "internal"
	switch {
	case errors.Is(err, lvq.ErrShape):
		status, kind = http.StatusBadRequest, "shape"
	case errors.Is(err, lvq.ErrValue):
		status, kind = http.StatusBadRequest, "value"
	case errors.Is(err, lvq.ErrFormat):
		status, kind = http.StatusUnprocessableEntity, "format"
	case errors.Is(err, lvq.ErrIO):
		status, kind = http.StatusInternalServerError, "io"
	case errors.Is(err, errRegistryFull):
		status, kind = http.StatusTooManyRequests, "capacity"
	}

	h.metrics.RequestErrors.WithLabelValues(method, kind).Inc()
	h.logger.Warn("request failed", map[string]interface{}{
		"method": method, "kind": kind, "error": err.Error(),
	})
	writeError(w, err.Error(), status)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": status,
	})
}
