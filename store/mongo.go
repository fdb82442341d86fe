// Copyright 2025 AgentDesk
// SPDX-License-Identifier: Apache-2.0
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists chat transcripts and session state in a
// document database. When no database is reachable the store runs in
// offline mode: writes become no-ops and reads return empty results,
// never an error the caller has to handle.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"agentdesk/platform/shared/logger"
)

const (
	// DefaultConnectTimeout bounds the initial connection attempt.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultMaxPoolSize is the maximum connection pool size.
	DefaultMaxPoolSize = 100
	// DefaultMinPoolSize is the minimum connection pool size.
	DefaultMinPoolSize = 10

	// OfflineDocID is returned by writes while the store is offline.
	OfflineDocID = "offline_mode"
)

// ChatRecord is one persisted chat interaction.
type ChatRecord struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID string                 `bson:"session_id" json:"session_id"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
	Request   string                 `bson:"request" json:"request"`
	Response  map[string]interface{} `bson:"response" json:"response"`
	AgentType string                 `bson:"agent_type" json:"agent_type"`
	Metadata  map[string]interface{} `bson:"metadata" json:"metadata"`
	Status    string                 `bson:"status" json:"status"`
}

// SessionRecord tracks the latest interaction of a chat session.
type SessionRecord struct {
	SessionID       string    `bson:"_id" json:"session_id"`
	LastInteraction time.Time `bson:"last_interaction" json:"last_interaction"`
	AgentType       string    `bson:"agent_type" json:"agent_type"`
	Status          string    `bson:"status" json:"status"`
}

// AgentStats aggregates persisted outcomes for one agent type.
type AgentStats struct {
	TotalRequests       int     `json:"total_requests"`
	SuccessfulRequests  int     `json:"successful_requests"`
	FailedRequests      int     `json:"failed_requests"`
	AverageResponseTime float64 `json:"average_response_time"`
	TotalResponseTime   float64 `json:"total_response_time"`
}

// ChatStore is the document-store wrapper for chat history, sessions,
// and agent status. Zero value is offline; use NewChatStore.
type ChatStore struct {
	client   *mongo.Client
	chats    *mongo.Collection
	sessions *mongo.Collection
	agents   *mongo.Collection
	log      *logger.Logger
	online   bool
}

// NewChatStore connects to MongoDB. An empty URI, or a failed
// connection, yields an offline store rather than an error: the rest
// of the service keeps working without persistence.
func NewChatStore(ctx context.Context, uri, dbName string, log *logger.Logger) *ChatStore {
	if log == nil {
		log = logger.New("store")
	}

	s := &ChatStore{log: log}

	if uri == "" {
		log.Info("", "", "Running in offline mode - database operations will be skipped", nil)
		return s
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(DefaultMaxPoolSize).
		SetMinPoolSize(DefaultMinPoolSize).
		SetConnectTimeout(DefaultConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		log.Warn("", "", "Database connection failed, running offline", map[string]interface{}{
			"error": err.Error(),
		})
		return s
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		log.Warn("", "", "Database ping failed, running offline", map[string]interface{}{
			"error": err.Error(),
		})
		_ = client.Disconnect(ctx)
		return s
	}

	db := client.Database(dbName)
	s.client = client
	s.chats = db.Collection("chats")
	s.sessions = db.Collection("sessions")
	s.agents = db.Collection("agents")
	s.online = true

	log.Info("", "", "Chat store connected", map[string]interface{}{
		"database": dbName,
	})
	return s
}

// Online reports whether the store has a live database connection.
func (s *ChatStore) Online() bool {
	return s.online
}

// SaveChatHistory persists one interaction and refreshes the session
// document. Offline mode returns OfflineDocID with no error.
func (s *ChatStore) SaveChatHistory(ctx context.Context, sessionID, request string, response map[string]interface{}, agentType string, metadata map[string]interface{}) (string, error) {
	if !s.online {
		s.log.Debug(sessionID, "", "Store offline - skipping chat history save", nil)
		return OfflineDocID, nil
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	record := ChatRecord{
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Request:   request,
		Response:  response,
		AgentType: agentType,
		Metadata:  metadata,
		Status:    "completed",
	}

	result, err := s.chats.InsertOne(ctx, record)
	if err != nil {
		return "", fmt.Errorf("failed to save chat history: %w", err)
	}

	// Best-effort session upsert; history write already succeeded.
	_, err = s.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{
			"last_interaction": time.Now().UTC(),
			"agent_type":       agentType,
			"status":           "active",
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		s.log.Warn(sessionID, "", "Failed to update session document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	docID := ""
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		docID = oid.Hex()
	}

	s.log.Info(sessionID, "", "Saved chat history", map[string]interface{}{
		"doc_id":     docID,
		"agent_type": agentType,
	})
	return docID, nil
}

// GetChatHistory returns a session's interactions, newest first.
// startAfter is a document id for pagination; results begin after it.
// Offline mode returns an empty slice.
func (s *ChatStore) GetChatHistory(ctx context.Context, sessionID string, limit int, startAfter string) ([]ChatRecord, error) {
	if !s.online {
		s.log.Debug(sessionID, "", "Store offline - returning empty chat history", nil)
		return []ChatRecord{}, nil
	}

	if limit <= 0 {
		limit = 50
	}

	filter := bson.M{"session_id": sessionID}

	if startAfter != "" {
		oid, err := primitive.ObjectIDFromHex(startAfter)
		if err != nil {
			return nil, fmt.Errorf("invalid pagination cursor %q: %w", startAfter, err)
		}
		var anchor ChatRecord
		if err := s.chats.FindOne(ctx, bson.M{"_id": oid}).Decode(&anchor); err == nil {
			filter["timestamp"] = bson.M{"$lt": anchor.Timestamp}
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	records := []ChatRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	return records, nil
}

// GetAgentStats aggregates outcomes for one agent type over an
// optional date range. Offline mode returns zeroed stats.
func (s *ChatStore) GetAgentStats(ctx context.Context, agentType string, startDate, endDate *time.Time) (AgentStats, error) {
	stats := AgentStats{}

	if !s.online {
		s.log.Debug("", "", "Store offline - returning empty stats", nil)
		return stats, nil
	}

	filter := bson.M{"agent_type": agentType}
	if startDate != nil || endDate != nil {
		ts := bson.M{}
		if startDate != nil {
			ts["$gte"] = *startDate
		}
		if endDate != nil {
			ts["$lte"] = *endDate
		}
		filter["timestamp"] = ts
	}

	cursor, err := s.chats.Find(ctx, filter)
	if err != nil {
		return stats, fmt.Errorf("failed to query agent stats: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	for cursor.Next(ctx) {
		var record ChatRecord
		if err := cursor.Decode(&record); err != nil {
			continue
		}

		stats.TotalRequests++
		if success, ok := record.Response["success"].(bool); ok && success {
			stats.SuccessfulRequests++
		} else {
			stats.FailedRequests++
		}
		if execTime, ok := toFloat(record.Response["execution_time"]); ok {
			stats.TotalResponseTime += execTime
		}
	}

	if stats.TotalRequests > 0 {
		stats.AverageResponseTime = stats.TotalResponseTime / float64(stats.TotalRequests)
	}
	return stats, nil
}

// UpdateAgentStatus upserts an agent health document. Used by the
// orchestrator health check. No-op offline.
func (s *ChatStore) UpdateAgentStatus(ctx context.Context, agentType, status string, metadata map[string]interface{}) error {
	if !s.online {
		return nil
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	_, err := s.agents.UpdateOne(ctx,
		bson.M{"_id": agentType},
		bson.M{"$set": bson.M{
			"last_updated": time.Now().UTC(),
			"status":       status,
			"metadata":     metadata,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update agent status: %w", err)
	}
	return nil
}

// GetActiveSessions lists active sessions, most recent first,
// optionally filtered by agent type. Offline mode returns an empty
// slice.
func (s *ChatStore) GetActiveSessions(ctx context.Context, agentType string, limit int) ([]SessionRecord, error) {
	if !s.online {
		s.log.Debug("", "", "Store offline - returning empty active sessions", nil)
		return []SessionRecord{}, nil
	}

	if limit <= 0 {
		limit = 100
	}

	filter := bson.M{"status": "active"}
	if agentType != "" {
		filter["agent_type"] = agentType
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_interaction", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	sessions := []SessionRecord{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode active sessions: %w", err)
	}
	return sessions, nil
}

// Close disconnects from the database. Safe to call offline.
func (s *ChatStore) Close(ctx context.Context) error {
	if !s.online || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
