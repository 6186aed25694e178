package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prose is a single-paragraph answer of 49 words.
const prose = "The transport layer provides reliable delivery through the three way handshake, " +
	"which opens every TCP connection before data flows. Flow control keeps a fast sender " +
	"from overwhelming a slow receiver, while congestion control reacts to packet loss across " +
	"the network. Together these mechanisms make TCP dependable for most applications."

var tcpCheckpoints = []string{"Three Way Handshake", "flow control", "CONGESTION control"}

func TestScoreNoCheckpoints(t *testing.T) {
	for _, notes := range []string{"", "anything at all", prose} {
		res := Score(notes, nil)
		assert.Equal(t, 0, res.Coverage)
		assert.Empty(t, res.Details)
		assert.NotNil(t, res.Details)
		assert.Equal(t, []string{CommentNoCheckpoints}, res.Comments)
	}
}

func TestScoreFullProse(t *testing.T) {
	require.GreaterOrEqual(t, WordCount(prose), 40)

	res := Score(prose, tcpCheckpoints)
	assert.Equal(t, 100, res.Coverage)
	assert.Equal(t, []string{CommentComplete}, res.Comments)
	require.Len(t, res.Details, 3)
	for i, d := range res.Details {
		assert.Equal(t, tcpCheckpoints[i], d.Checkpoint, "details keep checkpoint order and spelling")
		assert.True(t, d.Hit)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		notes       string
		checkpoints []string
		want        int
		comments    []string
	}{
		{
			name:        "short complete answer",
			notes:       "three way handshake flow control congestion control are all used",
			checkpoints: tcpCheckpoints,
			want:        80,
			comments:    []string{CommentTooShort, CommentPartial},
		},
		{
			name:        "list formatting",
			notes:       "handshake\nflow\ncongestion",
			checkpoints: []string{"handshake", "flow", "congestion"},
			want:        50,
			comments:    []string{CommentTooShort, CommentListLike, CommentSuperficial},
		},
		{
			name:        "two of three in prose rounds up",
			notes:       prose,
			checkpoints: []string{"handshake", "flow control", "multicast"},
			want:        67,
			comments:    []string{CommentPartial},
		},
		{
			name:        "one of six in prose",
			notes:       prose,
			checkpoints: []string{"handshake", "ipv6", "dns", "arp", "bgp", "ospf"},
			want:        17,
			comments:    []string{CommentSuperficial},
		},
		{
			name:        "two of three short answer",
			notes:       "handshake and flow control",
			checkpoints: []string{"handshake", "flow control", "multicast"},
			want:        47,
			comments:    []string{CommentTooShort, CommentSuperficial},
		},
		{
			name:        "empty notes floor at zero",
			notes:       "",
			checkpoints: tcpCheckpoints,
			want:        0,
			comments:    []string{CommentTooShort, CommentListLike, CommentSuperficial},
		},
		{
			name:        "cyrillic case folding",
			notes:       strings.Repeat("Протокол TCP обеспечивает надёжную доставку данных. ", 8),
			checkpoints: []string{"протокол tcp", "НАДЁЖНУЮ ДОСТАВКУ"},
			want:        100,
			comments:    []string{CommentComplete},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(tt.notes, tt.checkpoints)
			assert.Equal(t, tt.want, res.Coverage)
			assert.Equal(t, tt.comments, res.Comments)
			assert.GreaterOrEqual(t, res.Coverage, 0)
			assert.LessOrEqual(t, res.Coverage, 100)
		})
	}
}

func TestScoreTenWordAnswerBelowComplete(t *testing.T) {
	notes := "handshake flow control and congestion control keep TCP very reliable"
	require.Equal(t, 10, WordCount(notes))
	res := Score(notes, []string{"handshake", "flow control", "congestion control"})
	assert.Less(t, res.Coverage, 85)
}

func TestTierThresholds(t *testing.T) {
	// 20 checkpoints in long prose: each hit is worth 5 points.
	var cps []string
	for i := range 20 {
		cps = append(cps, "cp"+strings.Repeat("x", i))
	}
	tests := []struct {
		hits    int
		want    int
		comment string
	}{
		{17, 85, CommentComplete},
		{16, 80, CommentPartial},
		{13, 65, CommentPartial},
		{12, 60, CommentSuperficial},
	}
	for _, tt := range tests {
		// Checkpoints are prefixes of each other, so hitting the i-th longest
		// hits every shorter one too.
		notes := prose + " " + cps[tt.hits-1]
		res := Score(notes, cps)
		assert.Equal(t, tt.want, res.Coverage, "hits=%d", tt.hits)
		assert.Equal(t, []string{tt.comment}, res.Comments, "hits=%d", tt.hits)
	}
}

func TestWordAndLineCount(t *testing.T) {
	tests := []struct {
		in    string
		words int
		lines int
	}{
		{"", 0, 0},
		{"   \n\t ", 0, 0},
		{"one", 1, 1},
		{"one two\nthree", 3, 2},
		{"\n\none\n\ntwo\n\n", 2, 3},
		{"a\r\nb\rc", 3, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.words, WordCount(tt.in), "WordCount(%q)", tt.in)
		assert.Equal(t, tt.lines, LineCount(tt.in), "LineCount(%q)", tt.in)
	}
}
