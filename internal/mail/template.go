package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var taskAssignedTmpl = template.Must(template.ParseFS(templateFS, "templates/task_assigned.html"))

// TaskAssignment is the data rendered into an assignment mail.
type TaskAssignment struct {
	AssigneeName  string
	Title         string
	Description   string
	DueDate       *time.Time
	ProjectID     string
	ProjectName   string
	WorkspaceID   string
	WorkspaceName string
	Origin        string
}

// TaskLink is the browser URL of the task's project board.
func TaskLink(origin, workspaceID, projectID string) string {
	return fmt.Sprintf("%s/workspace/%s/project/%s", strings.TrimSuffix(origin, "/"), workspaceID, projectID)
}

// RenderTaskAssignment returns the subject and HTML body of an assignment mail.
func RenderTaskAssignment(a TaskAssignment) (subject, html string, err error) {
	data := struct {
		TaskAssignment
		DueDate string
		Link    string
	}{
		TaskAssignment: a,
		Link:           TaskLink(a.Origin, a.WorkspaceID, a.ProjectID),
	}
	if a.DueDate != nil {
		data.DueDate = a.DueDate.Format("Jan 2, 2006")
	}

	var buf bytes.Buffer
	if err := taskAssignedTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render task assignment: %w", err)
	}

	return "New Task Assignment: " + a.Title, buf.String(), nil
}
