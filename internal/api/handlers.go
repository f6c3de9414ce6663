package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/gorecipe/internal/extract"
	"github.com/hyperifyio/gorecipe/internal/fetch"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/render"
	"github.com/hyperifyio/gorecipe/internal/scale"
)

const maxJSONBody = 1 << 20

type parseRequest struct {
	URL string `json:"url"`
}

type scaleRequest struct {
	Ingredients      []recipe.IngredientGroup `json:"ingredients"`
	OriginalServings int                      `json:"originalServings"`
	Servings         int                      `json:"servings"`
}

type scaleResponse struct {
	Ingredients []recipe.IngredientGroup `json:"ingredients"`
}

type health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Commit  string `json:"commit,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, health{Status: "ok", Version: s.Version, Commit: s.Commit})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "request body must be JSON", 0)
		return false
	}
	return true
}

func (s *Server) parseRecipe(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := fetch.ValidateURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, recipe.CodeInvalidURL, "Invalid URL format", 0)
		return
	}
	zerolog.Ctx(r.Context()).Debug().Str("url", req.URL).Msg("parse recipe")
	s.respond(w, s.Pipeline.ExtractURL(r.Context(), req.URL))
}

func (s *Server) parseRecipeFromImage(w http.ResponseWriter, r *http.Request) {
	limit := s.MaxImageBytes
	if limit <= 0 {
		limit = extract.DefaultMaxImageBytes
	}
	if r.ContentLength > limit+uploadSlack {
		writeError(w, http.StatusRequestEntityTooLarge, recipe.CodeFileTooLarge, "image exceeds size limit", 0)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadSlack)
	if err := r.ParseMultipartForm(limit + uploadSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, recipe.CodeFileTooLarge, "image exceeds size limit", 0)
			return
		}
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "expected multipart form with an image field", 0)
		return
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "No image file provided", 0)
		return
	}
	defer file.Close()
	// read one byte past the limit so ExtractImage sees the overflow
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "could not read image", 0)
		return
	}
	s.respond(w, s.Pipeline.ExtractImage(r.Context(), hdr.Header.Get("Content-Type"), data))
}

func (s *Server) scale(w http.ResponseWriter, r *http.Request) {
	var req scaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	factor := scale.Factor(req.OriginalServings, req.Servings)
	writeJSON(w, http.StatusOK, scaleResponse{Ingredients: scale.Groups(req.Ingredients, factor)})
}

func (s *Server) respond(w http.ResponseWriter, res recipe.ExtractionResult) {
	if !res.OK() {
		writeFailure(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, render.Envelope{Success: true, ParsedRecipe: res.Recipe, Method: res.Method})
}
