package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestQuoteChunk_Identity(t *testing.T) {
	base := QuoteChunk{TopicID: "ep1_t1", Text: "hello", Speaker: "A", Timestamp: "00:01:00", SourceEpisodeID: "ep1"}

	tests := []struct {
		name     string
		other    QuoteChunk
		wantSame bool
	}{
		{
			name:     "same triple from another topic",
			other:    QuoteChunk{TopicID: "ep1_t2", Text: "hello", Speaker: "B", Timestamp: "00:01:00", SourceEpisodeID: "ep1"},
			wantSame: true,
		},
		{
			name:     "different timestamp",
			other:    QuoteChunk{Text: "hello", Timestamp: "00:01:01", SourceEpisodeID: "ep1"},
			wantSame: false,
		},
		{
			name:     "different episode",
			other:    QuoteChunk{Text: "hello", Timestamp: "00:01:00", SourceEpisodeID: "ep2"},
			wantSame: false,
		},
		{
			name:     "fields do not bleed into each other",
			other:    QuoteChunk{Text: "hello0", Timestamp: "0:01:00", SourceEpisodeID: "ep1"},
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same := base.Identity() == tt.other.Identity()
			if same != tt.wantSame {
				t.Errorf("Identity() equality = %v, want %v", same, tt.wantSame)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
	}{
		{"article", OutputArticle},
		{"report", OutputReport},
		{"answer", OutputAnswer},
		{"qa_response", OutputAnswer},
		{"", OutputArticle},
		{"poem", OutputArticle},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseOutputFormat(tt.in); got != tt.want {
				t.Errorf("ParseOutputFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResearchOutput_VerifiedCount(t *testing.T) {
	out := &ResearchOutput{Citations: []Citation{{Verified: true}, {Verified: false}, {Verified: true}}}
	if got := out.VerifiedCount(); got != 2 {
		t.Errorf("VerifiedCount() = %d, want 2", got)
	}
}

func TestResearchOutput_Normalize(t *testing.T) {
	out := &ResearchOutput{Content: "x", ExecutiveSummary: &ExecutiveSummary{MainInsight: "y"}}
	out.Normalize()
	if out.Citations == nil || out.Sources == nil || out.UnverifiedQuotes == nil {
		t.Errorf("Normalize() left a nil list: %+v", out)
	}
	if out.ExecutiveSummary.SupportingPoints == nil || out.ExecutiveSummary.KeyQuotes == nil {
		t.Errorf("Normalize() left a nil summary list: %+v", out.ExecutiveSummary)
	}

	kept := []string{"quote"}
	out = &ResearchOutput{UnverifiedQuotes: kept}
	out.Normalize()
	if len(out.UnverifiedQuotes) != 1 || out.ExecutiveSummary != nil {
		t.Errorf("Normalize() changed populated fields: %+v", out)
	}
}
