package http

import "net/http"

// handleTotalOverview answers for the authenticated caller; no email
// parameter is read.
func (s *Server) handleTotalOverview(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	ov, err := s.reports.Overview(ctx, who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(ov).Write(w)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	email, err := requiredQuery(r, "email")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	report, err := s.reports.Reports(ctx, who, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}
