package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shpitdev/entity-search-enricher/internal/app"
	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/internal/pipeline"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/io/local"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
)

type tableResponse struct {
	Columns []string                     `json:"columns"`
	Preview map[string]map[string]string `json:"preview"`

	// Values holds every row of each column; the dashboard generates queries from it.
	Values map[string][]string `json:"values"`
}

func newTableResponse(t *local.Table) tableResponse {
	cols := t.Columns
	if cols == nil {
		cols = []string{}
	}
	values := make(map[string][]string, len(cols))
	for _, c := range cols {
		v, err := t.Column(c)
		if err != nil {
			continue
		}
		values[c] = v
	}
	return tableResponse{Columns: cols, Preview: t.Preview(local.PreviewRows), Values: values}
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if !strings.HasSuffix(hdr.Filename, ".csv") {
		writeError(w, http.StatusBadRequest, "File is not a CSV")
		return
	}
	t, err := local.ReadTable(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not parse CSV: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newTableResponse(t))
}

type sheetRequest struct {
	SheetID string `json:"sheet_id"`
}

func (s *Server) handleGetGoogleSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SheetID) == "" {
		writeError(w, http.StatusBadRequest, "Sheet ID not provided")
		return
	}

	t, err := s.svc.Sheets.Fetch(r.Context(), req.SheetID)
	if err != nil {
		msg := redact.Secrets(err.Error())
		zerolog.Ctx(r.Context()).Error().Str("sheet_id", req.SheetID).Str("err", msg).Msg("sheet fetch failed")
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	writeJSON(w, http.StatusOK, newTableResponse(t))
}

type generateRequest struct {
	Entities []string `json:"entities"`
	Template string   `json:"template"`
}

type generateResponse struct {
	Queries []enrich.Query `json:"queries"`
}

func (s *Server) handleGenerateQueries(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Entities) == 0 {
		writeError(w, http.StatusBadRequest, "No entities provided")
		return
	}
	tpl := req.Template
	if tpl == "" {
		tpl = enrich.DefaultQueryTemplate
	}
	writeJSON(w, http.StatusOK, generateResponse{Queries: enrich.GenerateQueries(req.Entities, tpl)})
}

type searchRequest struct {
	Queries []string `json:"queries"`
}

func (s *Server) handlePerformSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, "No queries provided")
		return
	}

	results, err := enrich.SearchAll(r.Context(), s.svc.Searcher, req.Queries, s.svc.Options.Worker())
	if err != nil {
		writeError(w, contextStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type correlateRequest struct {
	Queries       []queryInput                    `json:"queries"`
	SearchResults map[string]enrich.SearchOutcome `json:"search_results"`
}

// queryInput is either a raw query string or an {entity, query} pair from /generate_queries.
type queryInput struct {
	enrich.Query
	tagged bool
}

func (q *queryInput) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		*q = queryInput{Query: enrich.Query{Text: text}}
		return nil
	}
	var tagged enrich.Query
	if err := json.Unmarshal(b, &tagged); err != nil {
		return fmt.Errorf("query must be a string or an {entity, query} object: %w", err)
	}
	*q = queryInput{Query: tagged, tagged: true}
	return nil
}

type correlateResponse struct {
	EntityData []enrich.EntityBundle `json:"entity_data"`
}

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	var req correlateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, http.StatusBadRequest, "No queries provided")
		return
	}

	// Tagged queries keep their entity; raw strings fall back to the query's last word.
	queries := make([]enrich.Query, 0, len(req.Queries))
	texts := make([]string, 0, len(req.Queries))
	allRaw := true
	for _, q := range req.Queries {
		if q.tagged {
			allRaw = false
		} else {
			q.Entity = enrich.EntityNameFromQuery(q.Text)
		}
		queries = append(queries, q.Query)
		texts = append(texts, q.Text)
	}
	if allRaw {
		writeJSON(w, http.StatusOK, correlateResponse{EntityData: enrich.Correlate(texts, req.SearchResults)})
		return
	}
	writeJSON(w, http.StatusOK, correlateResponse{EntityData: enrich.CorrelateQueries(queries, req.SearchResults)})
}

type processRequest struct {
	EntityData     []json.RawMessage `json:"entity_data"`
	PromptTemplate string            `json:"prompt_template"`
}

// entityInput is the part of a submitted entity the extractor reads. search_results may be
// a list or an {"error": ...} marker straight from /perform_search.
type entityInput struct {
	Company       string               `json:"company"`
	SearchResults enrich.SearchOutcome `json:"search_results"`
}

type processResult struct {
	Entity        json.RawMessage `json:"entity"`
	ExtractedInfo string          `json:"extracted_info"`
}

type processResponse struct {
	Results []processResult `json:"results"`
}

func (s *Server) handleProcessWithGroq(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.EntityData) == 0 {
		writeError(w, http.StatusBadRequest, "No entity data provided")
		return
	}

	bundles := make([]enrich.EntityBundle, 0, len(req.EntityData))
	for i, raw := range req.EntityData {
		var in entityInput
		if err := json.Unmarshal(raw, &in); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid entity data at index "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		bundles = append(bundles, enrich.EntityBundle{
			Entity:        in.Company,
			SearchResults: in.SearchResults.Results,
		})
	}

	log := *zerolog.Ctx(r.Context())
	records, err := enrich.ExtractAll(r.Context(), s.svc.Extractor(log), bundles, req.PromptTemplate, s.svc.Options.Worker())
	if err != nil {
		writeError(w, contextStatus(err), err.Error())
		return
	}
	sum := app.Summarize(records)
	log.Info().Int("ok", sum.OK).Int("no_results", sum.NoResults).Int("error", sum.Errors).Msg("extraction complete")

	out := processResponse{Results: make([]processResult, 0, len(records))}
	for i, rec := range records {
		out.Results = append(out.Results, processResult{Entity: req.EntityData[i], ExtractedInfo: rec.ExtractedText})
	}
	writeJSON(w, http.StatusOK, out)
}

type downloadRequest struct {
	Results []processResult `json:"results"`
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Results) == 0 {
		writeError(w, http.StatusBadRequest, "No results provided")
		return
	}

	rows := make([]pipeline.Row, 0, len(req.Results))
	for _, res := range req.Results {
		rows = append(rows, pipeline.Row{Company: entityName(res.Entity), ExtractedInfo: res.ExtractedInfo})
	}

	var buf bytes.Buffer
	if err := pipeline.WriteCSV(&buf, rows); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="extracted_data.csv"`)
	_, _ = w.Write(buf.Bytes())
}

// entityName reads the entity name from either a bare JSON string or an object with a
// "company" field.
func entityName(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var obj struct {
		Company string `json:"company"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Company != "" {
		return obj.Company
	}
	return enrich.UnknownEntity
}
