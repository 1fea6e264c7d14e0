package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxContexts = "registry_contexts"

// Meili implements Searcher via Meilisearch, with a background health
// loop so an outage degrades to the Postgres fallback instead of
// failing requests.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the context
// index. The caller should proceed without it if the instance stays
// unhealthy.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{client: client, done: make(chan struct{})}
	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxContexts,
		PrimaryKey: "contextid",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxContexts, err)
	}

	index := m.client.Index(idxContexts)
	filterable := []interface{}{"contextlevel"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxContexts, err)
	}
	searchable := []string{"name"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxContexts, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the context index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	resp, err := m.client.Index(idxContexts).Search(q.Text, &meili.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{
			ContextID: decodeInt(hit, "contextid"),
			Level:     int(decodeInt(hit, "contextlevel")),
			Name:      decodeString(hit, "name"),
		})
	}
	return results, int(resp.EstimatedTotalHits), nil
}

// IndexContexts pushes a batch of context records into the index.
func (m *Meili) IndexContexts(records []ContextRecord) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := m.client.Index(idxContexts).AddDocuments(records, nil); err != nil {
		return fmt.Errorf("index contexts: %w", err)
	}
	return nil
}

// DeleteContext removes one context from the index.
func (m *Meili) DeleteContext(contextID int64) error {
	if _, err := m.client.Index(idxContexts).DeleteDocument(fmt.Sprintf("%d", contextID), nil); err != nil {
		return fmt.Errorf("delete context %d: %w", contextID, err)
	}
	return nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

func decodeInt(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var value int64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0
	}
	return value
}
