package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestYahooHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/finance/search" {
			t.Fatalf("非预期路径 %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "AAPL" || q.Get("newsCount") != "2" || q.Get("quotesCount") != "0" {
			t.Fatalf("查询参数错误: %v", q)
		}
		fmt.Fprint(w, `{"news":[
			{"title":"Apple beats earnings estimates"},
			{"title":""},
			{"title":"iPhone sales climb"},
			{"title":"Extra item past the limit"}
		]}`)
	}))
	defer srv.Close()

	provider := NewYahoo(YahooOptions{BaseURL: srv.URL}, zerolog.Nop())
	titles, err := provider.Headlines(context.Background(), "AAPL", 2)
	if err != nil {
		t.Fatalf("Headlines 失败: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("应截断到 limit 条并跳过空标题: %v", titles)
	}
	if titles[0] != "Apple beats earnings estimates" || titles[1] != "iPhone sales climb" {
		t.Fatalf("标题解析错误: %v", titles)
	}
}

func TestYahooHeadlinesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	provider := NewYahoo(YahooOptions{BaseURL: srv.URL}, zerolog.Nop())
	if _, err := provider.Headlines(context.Background(), "AAPL", 3); err == nil {
		t.Fatal("非 200 状态应返回错误")
	}
}

func TestChatSummarizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("非预期路径 %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Fatalf("鉴权头错误: %q", auth)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  业绩超预期，销量向好。  "}}]}`)
	}))
	defer srv.Close()

	s := NewChatSummarizer(SummarizerOptions{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"}, zerolog.Nop())
	summary, err := s.Summarize(context.Background(), []string{"Apple beats earnings", "iPhone sales climb"})
	if err != nil {
		t.Fatalf("Summarize 失败: %v", err)
	}
	if summary != "业绩超预期，销量向好。" {
		t.Fatalf("摘要应去除首尾空白: %q", summary)
	}
}

func TestChatSummarizerEmptyHeadlines(t *testing.T) {
	s := NewChatSummarizer(SummarizerOptions{BaseURL: "http://unused", APIKey: "k"}, zerolog.Nop())
	summary, err := s.Summarize(context.Background(), nil)
	if err != nil || summary != "" {
		t.Fatalf("空标题列表应直接返回空摘要: %q %v", summary, err)
	}
}

func TestChatSummarizerUnconfigured(t *testing.T) {
	s := NewChatSummarizer(SummarizerOptions{}, zerolog.Nop())
	if _, err := s.Summarize(context.Background(), []string{"headline"}); err == nil {
		t.Fatal("未配置端点应返回错误")
	}
}

func TestChatSummarizerNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	s := NewChatSummarizer(SummarizerOptions{BaseURL: srv.URL, APIKey: "k"}, zerolog.Nop())
	_, err := s.Summarize(context.Background(), []string{"headline"})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("空 choices 应报错: %v", err)
	}
}
