// Command mock-servicedesk serves canned service desk collaborator APIs for
// local development: catalog resolution, recent changes, knowledge base
// search and incident history search.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

type systemDetails struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	SystemType   string   `json:"systemType"`
	Environment  string   `json:"environment,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Services     []string `json:"services,omitempty"`
	Status       string   `json:"status,omitempty"`
}

type change struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Type            string    `json:"type"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	AffectedSystems []string  `json:"affectedSystems"`
	Status          string    `json:"status"`
}

type article struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Symptoms []string `json:"symptoms"`
	Solution string   `json:"solution"`
	Category string   `json:"category"`
}

type incident struct {
	Number         string  `json:"number"`
	Title          string  `json:"title"`
	Category       string  `json:"category"`
	RootCause      string  `json:"rootCause"`
	Resolution     string  `json:"resolution"`
	ResolutionTime float64 `json:"resolutionTime"`
	Occurrences    int     `json:"occurrences"`
}

var catalog = []systemDetails{
	{ID: "srv-web-01", Name: "server-web-01.company.com", Type: "Web Server", SystemType: "server", Environment: "Production", Dependencies: []string{"srv-db-01", "srv-cache-01"}, Services: []string{"nginx", "nodejs"}, Status: "online"},
	{ID: "srv-web-02", Name: "server-web-02.company.com", Type: "Web Server", SystemType: "server", Environment: "Production", Dependencies: []string{"srv-db-01", "srv-cache-01"}, Services: []string{"nginx", "nodejs"}, Status: "online"},
	{ID: "srv-app-01", Name: "server-app-01.company.com", Type: "Application Server", SystemType: "server", Environment: "Production", Dependencies: []string{"srv-db-01", "srv-mq-01"}, Services: []string{"IIS", "dotnet"}, Status: "online"},
	{ID: "srv-db-01", Name: "database-01.company.com", Type: "Database Server", SystemType: "server", Environment: "Production", Services: []string{"postgresql", "pgbouncer"}, Status: "online"},
	{ID: "srv-db-02", Name: "database-02.company.com", Type: "Database Server", SystemType: "server", Environment: "Production", Dependencies: []string{"srv-db-01"}, Services: []string{"postgresql"}, Status: "online"},
	{ID: "srv-cache-01", Name: "cache-01.company.com", Type: "Cache Server", SystemType: "server", Environment: "Production", Services: []string{"redis"}, Status: "online"},
	{ID: "srv-mq-01", Name: "messagequeue-01.company.com", Type: "Message Queue", SystemType: "server", Environment: "Production", Services: []string{"rabbitmq"}, Status: "online"},
	{ID: "net-fw-01", Name: "firewall-01.company.com", Type: "Firewall", SystemType: "network", Status: "online"},
	{ID: "net-sw-core-01", Name: "switch-core-01.company.com", Type: "Core Switch", SystemType: "network", Status: "online"},
	{ID: "net-rt-edge-01", Name: "router-edge-01.company.com", Type: "Edge Router", SystemType: "network", Status: "online"},
	{ID: "net-lb-01", Name: "loadbalancer-01.company.com", Type: "Load Balancer", SystemType: "network", Status: "online"},
	{ID: "app-web-portal", Name: "Customer Portal", Type: "Web Application", SystemType: "application", Dependencies: []string{"srv-web-01", "srv-web-02", "srv-db-01", "srv-cache-01"}, Status: "online"},
	{ID: "app-api", Name: "REST API Service", Type: "API", SystemType: "application", Dependencies: []string{"srv-app-01", "srv-db-01", "srv-mq-01"}, Status: "online"},
	{ID: "app-admin", Name: "Admin Dashboard", Type: "Web Application", SystemType: "application", Dependencies: []string{"srv-web-01", "srv-db-01"}, Status: "online"},
}

func recentChanges() []change {
	now := time.Now()
	return []change{
		{ID: "CHG0001234", Title: "Database maintenance window", Type: "Scheduled", StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-1 * time.Hour), AffectedSystems: []string{"srv-db-01", "srv-db-02"}, Status: "Completed"},
		{ID: "CHG0001235", Title: "Firewall rule update", Type: "Standard", StartTime: now.Add(-4 * time.Hour), EndTime: now.Add(-210 * time.Minute), AffectedSystems: []string{"net-fw-01"}, Status: "Completed"},
		{ID: "CHG0001236", Title: "Application deployment - v2.5.0", Type: "Standard", StartTime: now.Add(-24 * time.Hour), EndTime: now.Add(-23 * time.Hour), AffectedSystems: []string{"srv-app-01", "app-api"}, Status: "Completed"},
	}
}

var knowledgeBase = []article{
	{ID: "KB001", Title: "Database Connection Pool Exhaustion", Symptoms: []string{"Connection timeout", "Pool exhausted", "Database unavailable"}, Solution: "Increase connection pool size and restart application server", Category: "Database"},
	{ID: "KB002", Title: "High CPU Usage on Web Servers", Symptoms: []string{"CPU > 90%", "Slow response", "Thread pool full"}, Solution: "Scale horizontally, optimize code, check for infinite loops", Category: "Server"},
	{ID: "KB003", Title: "Network Interface Flapping", Symptoms: []string{"Interface down/up", "Packet loss", "BGP flapping"}, Solution: "Check cable connections, update firmware, replace SFP module", Category: "Network"},
	{ID: "KB004", Title: "Application Memory Leak", Symptoms: []string{"Memory increasing", "OutOfMemory errors", "Performance degradation"}, Solution: "Apply latest patches, increase heap size temporarily, schedule restart", Category: "Application"},
	{ID: "KB005", Title: "SSL Certificate Issues", Symptoms: []string{"Certificate expired", "SSL handshake failed", "Security warning"}, Solution: "Renew certificate, update trust store, verify certificate chain", Category: "Security"},
}

var history = []incident{
	{Number: "INC0000999", Title: "Database connection pool exhaustion", Category: "Database", RootCause: "Connection leak in application code", Resolution: "Increased pool size and fixed application code", ResolutionTime: 3.5, Occurrences: 5},
	{Number: "INC0000998", Title: "High CPU on web servers", Category: "Server", RootCause: "Memory leak causing excessive garbage collection", Resolution: "Applied patch and restarted services", ResolutionTime: 2.0, Occurrences: 3},
	{Number: "INC0000997", Title: "Network latency spike", Category: "Network", RootCause: "BGP route flapping due to ISP issue", Resolution: "Worked with ISP to stabilize routes", ResolutionTime: 4.5, Occurrences: 2},
	{Number: "INC0000996", Title: "Application timeout errors", Category: "Application", RootCause: "Slow database queries blocking threads", Resolution: "Optimized queries and added indexes", ResolutionTime: 5.0, Occurrences: 4},
	{Number: "INC0000995", Title: "SSL certificate expired", Category: "Security", RootCause: "Certificate renewal process failed", Resolution: "Manually renewed and updated certificate", ResolutionTime: 1.0, Occurrences: 1},
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/catalog/resolve", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		for _, sys := range catalog {
			if sys.Name == req.Name || sys.ID == req.Name {
				writeJSON(w, map[string]any{"system": sys})
				return
			}
		}
		writeJSON(w, map[string]any{"system": nil})
	})

	mux.HandleFunc("/api/v1/changes/recent", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req struct {
			SinceHours int `json:"since_hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.SinceHours <= 0 {
			req.SinceHours = 24
		}
		cutoff := time.Now().Add(-time.Duration(req.SinceHours) * time.Hour)
		matched := make([]change, 0)
		for _, c := range recentChanges() {
			if !c.StartTime.Before(cutoff) {
				matched = append(matched, c)
			}
		}
		writeJSON(w, map[string]any{"changes": matched})
	})

	mux.HandleFunc("/api/v1/kb/search", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		symptoms, ok := decodeSymptoms(w, r)
		if !ok {
			return
		}
		matched := make([]article, 0)
		for _, kb := range knowledgeBase {
			if articleMatches(kb, symptoms) {
				matched = append(matched, kb)
			}
		}
		writeJSON(w, map[string]any{"articles": matched})
	})

	mux.HandleFunc("/api/v1/incidents/search", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		symptoms, ok := decodeSymptoms(w, r)
		if !ok {
			return
		}
		matched := make([]incident, 0)
		for _, inc := range history {
			text := strings.ToLower(inc.Title + " " + inc.RootCause + " " + inc.Resolution)
			for _, s := range symptoms {
				if strings.Contains(text, strings.ToLower(s)) {
					matched = append(matched, inc)
					break
				}
			}
		}
		writeJSON(w, map[string]any{"incidents": matched})
	})

	addr := ":9090"
	log.Printf("mock-servicedesk listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func articleMatches(kb article, symptoms []string) bool {
	for _, known := range kb.Symptoms {
		for _, s := range symptoms {
			a := strings.ToLower(s)
			b := strings.ToLower(known)
			if strings.Contains(a, b) || strings.Contains(b, a) {
				return true
			}
		}
	}
	return false
}

func decodeSymptoms(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req struct {
		Symptoms []string `json:"symptoms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil, false
	}
	return req.Symptoms, true
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
