package review

import (
	"fmt"
	"strings"

	"github.com/reviewgate/reviewgate/internal/github"
)

// Patches above this size are summarized by line counts instead of inlined,
// keeping the prompt within model context limits.
const maxInlinePatchSize = 2000

// Request is the body of a review request.
type Request struct {
	PRURL       string `json:"pr_url"`
	AutoComment bool   `json:"auto_comment"`
}

// Response is the successful outcome of a review request.
type Response struct {
	Status        string `json:"status"`
	FilesReviewed int    `json:"files_reviewed"`
	ReviewContent string `json:"review_content"`
	ProviderUsed  string `json:"llm_provider_used"`
	Commented     bool   `json:"commented"`
	RequestID     string `json:"request_id"`
}

// BuildPrompt assembles the review prompt from pull request metadata and its
// changed files. Small patches are inlined as diff blocks; large ones are
// reduced to an addition/deletion summary.
func BuildPrompt(details *github.PRDetails, files []github.PRFile) string {
	var summaries []string
	totalChanges := 0

	for _, file := range files {
		totalChanges += file.Additions + file.Deletions

		if len(file.Patch) > 0 && len(file.Patch) < maxInlinePatchSize {
			summaries = append(summaries, fmt.Sprintf(
				"\n**File: %s**\n```diff\n%s\n```", file.Filename, file.Patch))
		} else {
			summaries = append(summaries, fmt.Sprintf(
				"\n**File: %s** (Large file - %d+ %d- lines)",
				file.Filename, file.Additions, file.Deletions))
		}
	}

	var sb strings.Builder
	sb.WriteString("You are an expert code reviewer. Review the following GitHub pull request and provide concise, actionable feedback.\n\n")
	fmt.Fprintf(&sb, "**Pull Request: %s**\n", details.Title)
	if details.Body != "" {
		fmt.Fprintf(&sb, "Description: %s\n", details.Body)
	}
	fmt.Fprintf(&sb, "Author: %s\n", details.User.Login)
	fmt.Fprintf(&sb, "Branch: %s -> %s\n", details.Head.Ref, details.Base.Ref)
	fmt.Fprintf(&sb, "Files changed: %d, total changed lines: %d\n", len(files), totalChanges)
	sb.WriteString("\nFocus on bugs, security issues, performance problems and readability. Point out concrete lines where possible and suggest fixes.\n")
	sb.WriteString(strings.Join(summaries, "\n"))

	return sb.String()
}
