package llm

import (
	"context"
	"strings"
	"sync"
)

// MockResponse is one canned reply for MockClient.
type MockResponse struct {
	Content string
	Err     error
}

// MockClient returns canned responses in FIFO order and records every
// request. With an empty queue it answers with a small built-in payload
// chosen from the system prompt, which is what local development runs on.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{responses: responses}
}

func (m *MockClient) ModelName() string {
	return "mock"
}

func (m *MockClient) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	var next *MockResponse
	if len(m.responses) > 0 {
		next = &m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if next == nil {
		return &Response{Content: buildMockContent(req.System)}, nil
	}
	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content}, nil
}

// AddResponse appends a canned response to the queue.
func (m *MockClient) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or the zero Request.
func (m *MockClient) LastCall() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}
	}
	return m.Calls[len(m.Calls)-1]
}

func buildMockContent(system string) string {
	switch {
	case strings.Contains(system, `"emotionTone"`):
		return `{"grammar":"[Mock] Mostly correct.","vocabulary":"[Mock] Try more varied verbs.","grammarScore":78,"vocabularyScore":72,"pronunciation":80,"fluency":76,"pace":74,"clarity":82,"fillerWords":8,"emotionTone":"confident","mistake_explanation":"","improved_version":"[Mock] Improved text.","motivation":"[Mock] Keep going!"}`
	case strings.Contains(system, `"phrases"`):
		return `{"title":"[Mock] Lesson","description":"[Mock] A short lesson.","vocabulary":[{"word":"practice","definition":"repeated exercise","example":"Practice daily."}],"phrases":["How are you?"],"examples":["I practice every morning."],"tips":"[Mock] Speak slowly."}`
	case strings.Contains(system, `"motivationalQuote"`):
		return `{"sentence":"[Mock] Practice speaking a little every day.","vocabularyWord":{"word":"diligent","definition":"careful and hardworking","example":"She is a diligent student."},"conversation":{"scenario":"Morning Routine","prompt":"Describe how you start your day."},"motivationalQuote":"[Mock] Small steps every day."}`
	case strings.Contains(system, `"scrambled"`):
		return "```json\n" + `{"sentence":"[Mock] We practice English every day","scrambled":["[Mock]","We","practice","English","every","day"]}` + "\n```"
	case strings.Contains(system, `"question"`):
		return `{"question":"[Mock] She __ to work by bus. (go/goes/going)","answer":"goes"}`
	case strings.Contains(system, `"score"`):
		return `{"score":82,"feedback":"[Mock] Clear and natural."}`
	default:
		return "[Mock] Hello! Let's practice some English together."
	}
}
