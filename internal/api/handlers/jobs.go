package handlers

import (
	"net/http"
	"strings"
	"time"

	"dispatch-routing-service/internal/api/dto"
	"dispatch-routing-service/internal/services"
)

type JobsHandler struct {
	Planner *services.Planner
}

// Unassigned serves the unassigned-jobs pool for a shop over an inclusive
// date window: ?shop_id=...&from=YYYY-MM-DD&to=YYYY-MM-DD. A missing window
// defaults to today.
func (h *JobsHandler) Unassigned(w http.ResponseWriter, r *http.Request) {
	shopID := strings.TrimSpace(r.URL.Query().Get("shop_id"))
	if shopID == "" {
		writeError(w, r, http.StatusBadRequest, "shop_id is required")
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, to := today, today

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		writeError(w, r, http.StatusBadRequest, "to must not precede from")
		return
	}

	jobs, err := h.Planner.UnassignedJobs(r.Context(), shopID, from, to)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res := dto.ListUnassignedJobsResponse{Jobs: make([]dto.JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		res.Jobs = append(res.Jobs, toJobResponse(j))
	}

	writeJSON(w, r, http.StatusOK, res)
}
