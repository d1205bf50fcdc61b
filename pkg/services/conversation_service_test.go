package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/archiconstruct/chatbot/pkg/domain"
	"github.com/archiconstruct/chatbot/pkg/repository"
)

type fakeGeminiClient struct {
	mu sync.Mutex

	textReply      string
	textErr        error
	textCalls      [][]domain.Message
	onGenerateText func()

	imageText       string
	image           *domain.Image
	imageErr        error
	onGenerateImage func()

	videoOp  *genai.GenerateVideosOperation
	videoErr error

	pollOps   []*genai.GenerateVideosOperation
	pollErr   error
	pollCalls int
	pollAt    []time.Time

	videoData   []byte
	downloadErr error
}

func (f *fakeGeminiClient) GenerateText(_ context.Context, messages []domain.Message) (string, error) {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, messages)
	hook := f.onGenerateText
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return f.textReply, f.textErr
}

func (f *fakeGeminiClient) GenerateImage(_ context.Context, _ string, _ *domain.Image) (string, *domain.Image, error) {
	if f.onGenerateImage != nil {
		f.onGenerateImage()
	}
	return f.imageText, f.image, f.imageErr
}

func (f *fakeGeminiClient) GenerateVideo(_ context.Context, _ string, _ *domain.Image, _ domain.AspectRatio) (*genai.GenerateVideosOperation, error) {
	return f.videoOp, f.videoErr
}

func (f *fakeGeminiClient) PollVideo(_ context.Context, _ *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pollAt = append(f.pollAt, time.Now())
	if f.pollErr != nil {
		f.pollCalls++
		return nil, f.pollErr
	}

	i := f.pollCalls
	if i >= len(f.pollOps) {
		i = len(f.pollOps) - 1
	}
	f.pollCalls++
	return f.pollOps[i], nil
}

func (f *fakeGeminiClient) DownloadVideo(_ context.Context, _ string) ([]byte, error) {
	return f.videoData, f.downloadErr
}

type fakeKeyState struct {
	mu     sync.Mutex
	resets int
}

func (f *fakeKeyState) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = f.resets + 1
}

func notDoneOp() *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{Name: "operations/video-1"}
}

func doneOp(uri string) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Name: "operations/video-1",
		Done: true,
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{
				{Video: &genai.Video{URI: uri}},
			},
		},
	}
}

func TestNewConversationServiceSeedsWelcomeMessage(t *testing.T) {
	repo := repository.NewConversationRepository()
	NewConversationService(&fakeGeminiClient{}, repo, &fakeKeyState{}, time.Millisecond, 3)

	messages := repo.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 seeded message, got %d", len(messages))
	}
	if messages[0].Role != domain.RoleModel || messages[0].Text != welcomeMessageText {
		t.Errorf("unexpected welcome message: %+v", messages[0])
	}
}

func TestSendMessageEmptySubmission(t *testing.T) {
	repo := repository.NewConversationRepository()
	svc := NewConversationService(&fakeGeminiClient{}, repo, &fakeKeyState{}, time.Millisecond, 3)

	err := svc.SendMessage(context.Background(), domain.GenerationRequest{})
	if !errors.Is(err, domain.ErrEmptySubmission) {
		t.Fatalf("expected ErrEmptySubmission, got %v", err)
	}
	if repo.Len() != 1 {
		t.Errorf("empty submission must not touch history, got %d messages", repo.Len())
	}
}

func TestSendMessageRejectsConcurrentTurn(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	client := &fakeGeminiClient{textReply: "reply"}
	client.onGenerateText = func() {
		close(started)
		<-release
	}

	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, time.Millisecond, 3)

	done := make(chan error, 1)
	go func() {
		done <- svc.SendMessage(context.Background(), domain.GenerationRequest{Prompt: "first"})
	}()

	<-started

	lenBefore := repo.Len()
	err := svc.SendMessage(context.Background(), domain.GenerationRequest{Prompt: "second"})
	if !errors.Is(err, domain.ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}
	if repo.Len() != lenBefore {
		t.Errorf("rejected turn must not touch history: %d -> %d", lenBefore, repo.Len())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	// The turn is free again once the first one finished.
	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Prompt: "third"}); err != nil {
		t.Errorf("expected turn slot to be released, got %v", err)
	}
}

func TestSendMessageText(t *testing.T) {
	client := &fakeGeminiClient{textReply: "We can start with a 3D floor plan."}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, time.Millisecond, 3)

	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Prompt: "hello"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	messages := repo.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected welcome + user + model, got %d messages", len(messages))
	}
	if messages[1].Role != domain.RoleUser || messages[1].Text != "hello" {
		t.Errorf("unexpected user message: %+v", messages[1])
	}
	last := messages[2]
	if last.Role != domain.RoleModel || last.Text != client.textReply || last.Status != domain.StatusReady {
		t.Errorf("unexpected model message: %+v", last)
	}
}

func TestSendMessageTextFaults(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedResets int
	}{
		{name: "missing credential", err: domain.ErrCredentialMissing, expectedResets: 0},
		{name: "invalid credential", err: domain.ErrCredentialInvalid, expectedResets: 1},
		{name: "blocked content", err: domain.ErrContentBlocked, expectedResets: 0},
		{name: "generic failure", err: errors.New("upstream timeout"), expectedResets: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client := &fakeGeminiClient{textErr: test.err}
			keyState := &fakeKeyState{}
			repo := repository.NewConversationRepository()
			svc := NewConversationService(client, repo, keyState, time.Millisecond, 3)

			if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Prompt: "hello"}); err != nil {
				t.Fatalf("SendMessage returned error: %v", err)
			}

			messages := repo.Messages()
			last := messages[len(messages)-1]
			if last.Role != domain.RoleModel || last.Status != domain.StatusFailed {
				t.Errorf("expected failed model message, got %+v", last)
			}
			if last.Text != domain.FaultText(test.err) {
				t.Errorf("expected fault copy %q, got %q", domain.FaultText(test.err), last.Text)
			}
			if keyState.resets != test.expectedResets {
				t.Errorf("expected %d key resets, got %d", test.expectedResets, keyState.resets)
			}
		})
	}
}

func TestFaultCopyIsDistinctPerFaultClass(t *testing.T) {
	missing := domain.FaultText(domain.ErrCredentialMissing)
	invalid := domain.FaultText(domain.ErrCredentialInvalid)
	generic := domain.FaultText(errors.New("boom"))

	if missing == generic || invalid == generic || missing == invalid {
		t.Errorf("fault copy not distinct: missing=%q invalid=%q generic=%q", missing, invalid, generic)
	}
}

func TestSendMessageImage(t *testing.T) {
	generated := &domain.Image{Data: "aGk=", MIMEType: "image/png"}
	client := &fakeGeminiClient{imageText: "Here is your render.", image: generated}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, time.Millisecond, 3)

	var pendingID string
	client.onGenerateImage = func() {
		messages := repo.Messages()
		last := messages[len(messages)-1]
		if !last.Pending() || last.Status != domain.StatusPendingImage {
			t.Errorf("expected pending placeholder during generation, got %+v", last)
		}
		pendingID = last.ID
	}

	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Mode: domain.ModeImage, Prompt: "a modern kitchen"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	messages := repo.Messages()
	last := messages[len(messages)-1]
	if last.ID != pendingID {
		t.Errorf("placeholder ID changed on completion: %s != %s", last.ID, pendingID)
	}
	if last.Status != domain.StatusReady || last.Image != generated || last.Text != "Here is your render." {
		t.Errorf("unexpected completed message: %+v", last)
	}
}

func TestSendMessageImageFaultKeepsPlaceholderID(t *testing.T) {
	client := &fakeGeminiClient{imageErr: domain.ErrNoImageInResponse}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, time.Millisecond, 3)

	var pendingID string
	client.onGenerateImage = func() {
		messages := repo.Messages()
		pendingID = messages[len(messages)-1].ID
	}

	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Mode: domain.ModeImage, Prompt: "a render"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	messages := repo.Messages()
	last := messages[len(messages)-1]
	if last.ID != pendingID {
		t.Errorf("fault must land in the same placeholder: %s != %s", last.ID, pendingID)
	}
	if last.Status != domain.StatusFailed || last.Text != domain.FaultText(domain.ErrNoImageInResponse) {
		t.Errorf("unexpected failed message: %+v", last)
	}
}

func TestSendMessageVideo(t *testing.T) {
	const pollInterval = 20 * time.Millisecond

	client := &fakeGeminiClient{
		videoOp:   notDoneOp(),
		pollOps:   []*genai.GenerateVideosOperation{notDoneOp(), notDoneOp(), doneOp("https://example.com/video")},
		videoData: []byte("mp4-bytes"),
	}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, pollInterval, 120)

	start := time.Now()
	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Mode: domain.ModeVideo, Prompt: "a walkthrough"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	elapsed := time.Since(start)

	if client.pollCalls != 3 {
		t.Errorf("expected 3 status checks, got %d", client.pollCalls)
	}
	// Two "not done" checks cost exactly two waits before the third check.
	if elapsed < 2*pollInterval {
		t.Errorf("expected at least two poll waits (%v), finished in %v", 2*pollInterval, elapsed)
	}

	messages := repo.Messages()
	last := messages[len(messages)-1]
	if last.Status != domain.StatusReady || last.Video == nil {
		t.Fatalf("expected ready video message, got %+v", last)
	}
	if string(last.Video.Data) != "mp4-bytes" || last.Video.MIMEType != "video/mp4" {
		t.Errorf("unexpected video payload: %+v", last.Video)
	}
}

func TestSendMessageVideoPollBudgetExhausted(t *testing.T) {
	client := &fakeGeminiClient{
		videoOp: notDoneOp(),
		pollOps: []*genai.GenerateVideosOperation{notDoneOp()},
	}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, time.Millisecond, 3)

	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Mode: domain.ModeVideo, Prompt: "a walkthrough"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	if client.pollCalls != 3 {
		t.Errorf("expected polling to stop at the attempt budget, got %d calls", client.pollCalls)
	}

	messages := repo.Messages()
	last := messages[len(messages)-1]
	if last.Status != domain.StatusFailed {
		t.Errorf("expected failed placeholder after exhausted budget, got %+v", last)
	}
}

func TestSendMessageVideoSubmitFaultResetsKey(t *testing.T) {
	client := &fakeGeminiClient{videoErr: domain.ErrCredentialInvalid}
	keyState := &fakeKeyState{}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, keyState, time.Millisecond, 3)

	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Mode: domain.ModeVideo, Prompt: "a walkthrough"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	if keyState.resets != 1 {
		t.Errorf("expected exactly one key reset, got %d", keyState.resets)
	}

	messages := repo.Messages()
	last := messages[len(messages)-1]
	if last.Status != domain.StatusFailed || last.Text != domain.FaultText(domain.ErrCredentialInvalid) {
		t.Errorf("unexpected failed message: %+v", last)
	}
}

func TestSendMessageVideoCancelledContext(t *testing.T) {
	client := &fakeGeminiClient{
		videoOp: notDoneOp(),
		pollOps: []*genai.GenerateVideosOperation{notDoneOp()},
	}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, time.Hour, 120)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if err := svc.SendMessage(ctx, domain.GenerationRequest{Mode: domain.ModeVideo, Prompt: "a walkthrough"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation did not stop polling, took %v", elapsed)
	}

	messages := repo.Messages()
	last := messages[len(messages)-1]
	if last.Status != domain.StatusFailed {
		t.Errorf("expected failed placeholder after cancellation, got %+v", last)
	}
}

func TestContextImageConsumedByNextTurn(t *testing.T) {
	client := &fakeGeminiClient{textReply: "ok"}
	repo := repository.NewConversationRepository()
	svc := NewConversationService(client, repo, &fakeKeyState{}, time.Millisecond, 3)

	contextImage := &domain.Image{Data: "aGk=", MIMEType: "image/png"}
	svc.SetContextImage(contextImage)

	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Prompt: "what do you think?"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if err := svc.SendMessage(context.Background(), domain.GenerationRequest{Prompt: "and now?"}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	messages := repo.Messages()
	var userMessages []domain.Message
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			userMessages = append(userMessages, m)
		}
	}
	if len(userMessages) != 2 {
		t.Fatalf("expected 2 user messages, got %d", len(userMessages))
	}
	if userMessages[0].Image != contextImage {
		t.Error("first turn should carry the context image")
	}
	if userMessages[1].Image != nil {
		t.Error("context image must be consumed by the first turn")
	}
}
