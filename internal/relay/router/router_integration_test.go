package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"chat_relay_service/internal/relay/app"
	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/internal/relay/repository"
	"chat_relay_service/pkg/database"
	"chat_relay_service/pkg/logger"
	testtool "chat_relay_service/pkg/test_tool"
	tkn "chat_relay_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	mongoContainer testcontainers.Container
	redisContainer testcontainers.Container
	relayApp       *fiber.App
	sessionStore   repository.SessionStore
	msgStore       repository.MessageStore
)

const (
	wsBase   = "ws://127.0.0.1:8082"
	httpBase = "http://127.0.0.1:8082"
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	logger.SetNewNop()

	var err error
	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:latest",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		log.Fatalf("Failed to start MongoDB container: %v", err)
	}

	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		log.Fatalf("Failed to start Redis container: %v", err)
	}

	mongo, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
		RetryCount:    5,
		RetryInterval: 5,
	}, "test_relay_db")
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close(ctx)

	redisClient, err := database.NewRedisClient(fmt.Sprintf("%s:%s", redisHost, redisPort), 0)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	msgStore = repository.NewMongoMessageStore(mongo.Database)
	roomStore := repository.NewMongoRoomStore(mongo.Database)
	sessionStore = repository.NewRedisSessionStore(
		database.NewRedisRepository[domain.Session](redisClient),
		time.Hour,
	)

	relay := app.NewRelay(msgStore, nil, app.NewPresenceTracker(domain.PresenceScopeRooms, nil))
	loopCtx, cancel := context.WithCancel(ctx)
	go relay.Run(loopCtx)

	gateway := app.NewGatewayHandler(relay, sessionStore)
	api := app.NewHTTPHandler(msgStore, roomStore)

	relayApp = fiber.New()
	RegisterRoutes(relayApp, gateway, api)

	go func() {
		if err := relayApp.Listen(":8082"); err != nil {
			log.Fatalf("Failed to start Fiber: %v", err)
		}
	}()
	time.Sleep(2 * time.Second)

	code := m.Run()

	cancel()
	_ = relayApp.Shutdown()
	_ = mongoContainer.Terminate(ctx)
	_ = redisContainer.Terminate(ctx)

	os.Exit(code)
}

type wireEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// dial opens an authenticated websocket session for the user
func dial(t *testing.T, userID, username string) *gws.Conn {
	t.Helper()

	token, err := tkn.GenerateJWT(userID, username, "relay-test")
	assert.NoError(t, err)
	err = sessionStore.Create(context.Background(), domain.Session{
		Token:        token,
		UserID:       userID,
		Username:     username,
		CreatedAt:    time.Now().Unix(),
		LastActivity: time.Now().Unix(),
	})
	assert.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial(wsBase+"/ws?auth="+token, nil)
	assert.NoError(t, err, "websocket dial failed")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *gws.Conn, frame string) {
	t.Helper()
	assert.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(frame)))
}

// readEvent reads frames until one with the wanted event name shows up
func readEvent(t *testing.T, conn *gws.Conn, event string) wireEnvelope {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		var evt wireEnvelope
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}
		if evt.Event == event {
			return evt
		}
	}
	t.Fatalf("never received %q", event)
	return wireEnvelope{}
}

// expectNoEvent drains frames for a short window and fails if one with
// the given event name arrives
func expectNoEvent(t *testing.T, conn *gws.Conn, event string) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(700 * time.Millisecond))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var evt wireEnvelope
		if json.Unmarshal(raw, &evt) == nil && evt.Event == event {
			t.Fatalf("unexpected %q: %s", event, string(evt.Payload))
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	resp, err := http.Get(httpBase + "/healthz")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketRejectsUnknownSession(t *testing.T) {
	// Valid JWT but no live session behind it
	token, err := tkn.GenerateJWT("ghost", "ghost", "relay-test")
	assert.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial(wsBase+"/ws?auth="+token, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "gateway should close the connection")
}

func TestMessageRelayBetweenClients(t *testing.T) {
	alice := dial(t, "it-alice", "alice")
	bob := dial(t, "it-bob", "bob")

	sendFrame(t, alice, `{"action": "join_room", "room_id": "room-it-1"}`)
	readEvent(t, alice, "room_update")
	sendFrame(t, bob, `{"action": "join_room", "room_id": "room-it-1"}`)
	readEvent(t, bob, "room_update")

	sendFrame(t, alice, `{"action": "send_message", "room_id": "room-it-1", "content": "Hello B!"}`)

	evt := readEvent(t, bob, "receive_message")
	var msg domain.ChatMessage
	assert.NoError(t, json.Unmarshal(evt.Payload, &msg))
	assert.Equal(t, "room-it-1", msg.RoomID)
	assert.Equal(t, "it-alice", msg.SenderID)
	assert.Equal(t, "Hello B!", msg.Content)

	expectNoEvent(t, alice, "receive_message")

	// The detached write lands in mongo
	assert.Eventually(t, func() bool {
		stored, err := msgStore.GetMessagesByRoom(context.Background(), "room-it-1")
		return err == nil && len(stored) == 1 && stored[0].Content == "Hello B!"
	}, 5*time.Second, 100*time.Millisecond)
}

func TestTypingRelayBetweenClients(t *testing.T) {
	alice := dial(t, "it-carol", "carol")
	bob := dial(t, "it-dave", "dave")

	sendFrame(t, alice, `{"action": "join_room", "room_id": "room-it-2"}`)
	readEvent(t, alice, "room_update")
	sendFrame(t, bob, `{"action": "join_room", "room_id": "room-it-2"}`)
	readEvent(t, bob, "room_update")

	sendFrame(t, alice, `{"action": "typing", "room_id": "room-it-2", "is_typing": true}`)

	evt := readEvent(t, bob, "user_typing")
	var notice domain.TypingNotice
	assert.NoError(t, json.Unmarshal(evt.Payload, &notice))
	assert.Equal(t, "it-carol", notice.UserID)
	assert.Equal(t, "carol", notice.Username)
	assert.True(t, notice.IsTyping)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Unix()
	err := sessionStore.Create(ctx, domain.Session{
		Token:        "lifecycle-token",
		UserID:       "it-frank",
		Username:     "frank",
		CreatedAt:    now,
		LastActivity: now,
	})
	assert.NoError(t, err)

	found, err := sessionStore.Find(ctx, "lifecycle-token")
	assert.NoError(t, err)
	assert.Equal(t, "it-frank", found.UserID)

	assert.NoError(t, sessionStore.Touch(ctx, "lifecycle-token"))

	assert.NoError(t, sessionStore.Expire(ctx, "lifecycle-token"))
	_, err = sessionStore.Find(ctx, "lifecycle-token")
	assert.Error(t, err, "expired session must not resolve")
}

func TestMalformedFrameGetsErrorReply(t *testing.T) {
	conn := dial(t, "it-eve", "eve")

	sendFrame(t, conn, `{"action": "send_message"}`)
	readEvent(t, conn, "error")

	sendFrame(t, conn, `not json at all`)
	readEvent(t, conn, "error")
}
