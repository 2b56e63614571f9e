package client

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/openschool/campus/core/submission"
)

// ProgressFunc receives the number of bytes sent so far out of total.
type ProgressFunc func(sent, total int64)

type UnitService struct{ c *Client }

type (
	textBoxRequest struct {
		Text string `json:"text"`
	}

	returnRequest struct {
		AdminComment string `json:"admin_comment"`
	}
)

func unitPath(id string) string {
	return "/units/" + url.PathEscape(id)
}

func slotPath(id, slotID string) string {
	return unitPath(id) + "/upload-slots/" + url.PathEscape(slotID)
}

func (s *UnitService) unitCall(ctx context.Context, method, path string, body interface{}) (submission.Submission, error) {
	var sub submission.Submission
	err := s.c.call(ctx, method, path, body, &sub)
	return sub, err
}

// Initialize starts the next unit of an enrollment.
func (s *UnitService) Initialize(ctx context.Context, enrollmentID string) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPost, enrollmentPath(enrollmentID)+"/units", nil)
}

func (s *UnitService) ListForEnrollment(ctx context.Context, enrollmentID string) ([]submission.Submission, error) {
	var subs []submission.Submission
	err := s.c.get(ctx, enrollmentPath(enrollmentID)+"/units", &subs)
	return subs, err
}

// Query lists the units of every student. Staff only.
func (s *UnitService) Query(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	q := make(url.Values)
	if filter.EnrollmentID != "" {
		q.Set("enrollment_id", filter.EnrollmentID)
	}
	if filter.Submitted != nil {
		q.Set("submitted", strconv.FormatBool(*filter.Submitted))
	}
	if filter.Closed != nil {
		q.Set("closed", strconv.FormatBool(*filter.Closed))
	}

	var subs []submission.Submission
	req := s.c.newRequest(ctx)
	req.SetQueryParamsFromValues(q).SetResult(&subs)
	_, err := s.c.send(req, http.MethodGet, "/units")
	return subs, err
}

func (s *UnitService) Get(ctx context.Context, id string) (submission.Submission, error) {
	var sub submission.Submission
	err := s.c.get(ctx, unitPath(id), &sub)
	return sub, err
}

func (s *UnitService) SaveTextBox(ctx context.Context, id, textBoxID, text string) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPut, unitPath(id)+"/text-boxes/"+url.PathEscape(textBoxID), textBoxRequest{Text: text})
}

// Upload sends the file of an upload slot. progress, when not nil, is called as the content is read for sending.
func (s *UnitService) Upload(
	ctx context.Context,
	id, slotID, filename string,
	content io.Reader,
	size int64,
	progress ProgressFunc,
) (submission.Submission, error) {
	if progress != nil {
		content = &progressReader{r: content, total: size, fn: progress}
	}

	var sub submission.Submission
	req := s.c.newRequest(ctx)
	req.SetFileReader("file", filename, content).SetResult(&sub)
	_, err := s.c.send(req, http.MethodPut, slotPath(id, slotID)+"/file")
	return sub, err
}

// Download returns the uploaded file of a slot and its name.
func (s *UnitService) Download(ctx context.Context, id, slotID string) ([]byte, string, error) {
	res, err := s.c.send(s.c.newRequest(ctx), http.MethodGet, slotPath(id, slotID)+"/file")
	if err != nil {
		return nil, "", err
	}
	var filename string
	if _, params, err := mime.ParseMediaType(res.Header().Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return res.Body(), filename, nil
}

func (s *UnitService) DeleteFile(ctx context.Context, id, slotID string) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodDelete, slotPath(id, slotID)+"/file", nil)
}

func (s *UnitService) Submit(ctx context.Context, id string) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPost, unitPath(id)+"/submit", nil)
}

func (s *UnitService) Skip(ctx context.Context, id string) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPost, unitPath(id)+"/skip", nil)
}

func (s *UnitService) SetTextBoxMark(ctx context.Context, id, textBoxID string, mp submission.MarkPatch) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPatch, unitPath(id)+"/text-boxes/"+url.PathEscape(textBoxID)+"/mark", mp)
}

func (s *UnitService) SetUploadSlotMark(ctx context.Context, id, slotID string, mp submission.MarkPatch) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPatch, slotPath(id, slotID)+"/mark", mp)
}

func (s *UnitService) Close(ctx context.Context, id string) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPost, unitPath(id)+"/close", nil)
}

func (s *UnitService) Return(ctx context.Context, id, adminComment string) (submission.Submission, error) {
	return s.unitCall(ctx, http.MethodPost, unitPath(id)+"/return", returnRequest{AdminComment: adminComment})
}

// progressReader reports the bytes read from r.
type progressReader struct {
	r     io.Reader
	total int64
	fn    ProgressFunc

	mu   sync.Mutex
	sent int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.mu.Lock()
		pr.sent += int64(n)
		sent := pr.sent
		pr.mu.Unlock()
		pr.fn(sent, pr.total)
	}
	return n, err
}
