package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
)

// Chat event kinds delivered by the messaging webhook.
const (
	ChatFollow   = "follow"
	ChatMessage  = "message"
	ChatPostback = "postback"
)

const (
	chatJobLimit          = 10
	chatNotificationLimit = 5
)

// ChatEvent is one inbound chat-bot event.
type ChatEvent struct {
	Type         string
	ReplyToken   string
	UserID       string
	Text         string
	PostbackData string
}

// postback is the decoded form of a postback payload such as
// "action=apply_job&jobId=42".
type postback struct {
	Action  string `mapstructure:"action"`
	JobID   string `mapstructure:"jobId"`
	Elderly string `mapstructure:"elderly"`
}

// ChatbotService answers chat-bot events for seekers identified by their
// messaging user id.
type ChatbotService struct {
	stores       Stores
	applications *ApplicationService
	seekers      *SeekerService
	transport    domain.MessagingTransport
	liffURL      string
	logger       *slog.Logger
	now          func() time.Time
}

// NewChatbotService creates a new chat-bot service
func NewChatbotService(stores Stores, applications *ApplicationService, seekers *SeekerService, transport domain.MessagingTransport, liffURL string, logger *slog.Logger) *ChatbotService {
	return &ChatbotService{
		stores:       stores,
		applications: applications,
		seekers:      seekers,
		transport:    transport,
		liffURL:      strings.TrimRight(liffURL, "/"),
		logger:       orDefaultLogger(logger),
		now:          time.Now,
	}
}

// HandleEvents processes events one by one. A failing event is logged and
// does not stop the rest.
func (s *ChatbotService) HandleEvents(ctx context.Context, events []ChatEvent) {
	for _, ev := range events {
		if err := s.HandleEvent(ctx, ev); err != nil {
			s.logger.Error("chat event failed",
				slog.String("type", ev.Type),
				slog.String("error", err.Error()),
			)
		}
	}
}

// HandleEvent answers a single event. Events without a user id are ignored.
func (s *ChatbotService) HandleEvent(ctx context.Context, ev ChatEvent) error {
	if ev.UserID == "" {
		return nil
	}
	switch ev.Type {
	case ChatFollow, ChatMessage, ChatPostback:
	default:
		return nil
	}

	seeker, err := s.stores.Seekers.GetByLineUserID(ctx, ev.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	switch ev.Type {
	case ChatFollow:
		if seeker == nil {
			return s.reply(ctx, ev, s.welcomeText())
		}
		return s.reply(ctx, ev, mainMenuText())
	case ChatMessage:
		if seeker == nil {
			return s.handleGuestText(ctx, ev)
		}
		return s.handleText(ctx, ev, seeker)
	default:
		if seeker == nil {
			return s.handleGuestPostback(ctx, ev)
		}
		return s.handlePostback(ctx, ev, seeker)
	}
}

// handleGuestText serves users without a seeker profile: registration,
// linking of a web account, or the welcome text.
func (s *ChatbotService) handleGuestText(ctx context.Context, ev ChatEvent) error {
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	if code, ok := linkCommand(text); ok {
		return s.link(ctx, ev, code)
	}
	if text == "สมัคร" || text == "register" {
		return s.register(ctx, ev, true)
	}
	return s.reply(ctx, ev, s.welcomeText())
}

func (s *ChatbotService) handleGuestPostback(ctx context.Context, ev ChatEvent) error {
	pb, err := decodePostback(ev.PostbackData)
	if err == nil && pb.Action == "register" {
		return s.register(ctx, ev, pb.Elderly != "false")
	}
	return s.reply(ctx, ev, errorText("กรุณาลงทะเบียนก่อนใช้งาน"), s.welcomeText())
}

func (s *ChatbotService) register(ctx context.Context, ev ChatEvent, elderly bool) error {
	if s.seekers == nil {
		return s.reply(ctx, ev, s.welcomeText())
	}
	_, err := s.seekers.RegisterFromChat(ctx, ev.UserID, elderly)
	if errors.Is(err, domain.ErrConflict) {
		return s.reply(ctx, ev, mainMenuText())
	}
	if err != nil {
		return err
	}
	return s.reply(ctx, ev,
		successText("ลงทะเบียนเรียบร้อยแล้ว"),
		"กรุณาพิมพ์เบอร์โทรศัพท์ของคุณ เพื่อให้บริษัทติดต่อกลับได้",
		mainMenuText(),
	)
}

func (s *ChatbotService) link(ctx context.Context, ev ChatEvent, code string) error {
	if s.seekers == nil {
		return s.reply(ctx, ev, s.welcomeText())
	}
	seeker, err := s.seekers.LinkChat(ctx, ev.UserID, code)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.reply(ctx, ev, errorText("รหัสเชื่อมบัญชีไม่ถูกต้องหรือหมดอายุ"))
	case errors.Is(err, domain.ErrConflict):
		return s.reply(ctx, ev, errorText("บัญชี LINE นี้เชื่อมกับโปรไฟล์อื่นแล้ว"))
	case err != nil:
		return err
	}
	return s.reply(ctx, ev, successText("เชื่อมบัญชีกับโปรไฟล์ "+seeker.DisplayName+" แล้ว"), mainMenuText())
}

// linkCommand parses "link 123456" or "เชื่อม 123456".
func linkCommand(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 || (fields[0] != "link" && fields[0] != "เชื่อม") {
		return "", false
	}
	return fields[1], true
}

func (s *ChatbotService) handleText(ctx context.Context, ev ChatEvent, seeker *domain.JobSeeker) error {
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	switch {
	case text == "เมนู" || text == "menu" || text == "help":
		return s.reply(ctx, ev, mainMenuText())
	case text == "jobs" || strings.Contains(text, "งาน"):
		return s.browseJobs(ctx, ev, seeker)
	case phonePattern.MatchString(normalizePhone(text)) && s.seekers != nil:
		if err := s.seekers.SetPhone(ctx, seeker, text); err != nil {
			return err
		}
		return s.reply(ctx, ev, successText("บันทึกเบอร์โทรศัพท์ "+seeker.Phone+" แล้ว"))
	}
	if _, ok := linkCommand(text); ok {
		return s.reply(ctx, ev, "บัญชี LINE นี้เชื่อมกับโปรไฟล์แล้ว")
	}
	return s.reply(ctx, ev, `พิมพ์ "เมนู" เพื่อดูเมนูหลัก หรือใช้ปุ่มด้านล่าง`)
}

func (s *ChatbotService) handlePostback(ctx context.Context, ev ChatEvent, seeker *domain.JobSeeker) error {
	pb, err := decodePostback(ev.PostbackData)
	if err != nil {
		s.logger.Warn("malformed postback", slog.String("data", ev.PostbackData))
		return s.reply(ctx, ev, mainMenuText())
	}

	switch pb.Action {
	case "browse_jobs":
		return s.browseJobs(ctx, ev, seeker)
	case "my_applications":
		return s.myApplications(ctx, ev, seeker)
	case "edit_profile":
		return s.reply(ctx, ev, "กรุณาแก้ไขโปรไฟล์ผ่านลิงก์นี้: "+s.liffURL+"/profile")
	case "notifications":
		return s.notifications(ctx, ev, seeker)
	case "job_details":
		return s.jobDetails(ctx, ev, seeker, pb.JobID)
	case "apply_job":
		return s.applyJob(ctx, ev, seeker, pb.JobID)
	}
	return s.reply(ctx, ev, mainMenuText())
}

func decodePostback(data string) (postback, error) {
	var pb postback
	values, err := url.ParseQuery(data)
	if err != nil {
		return pb, err
	}
	flat := make(map[string]string, len(values))
	for k := range values {
		flat[k] = values.Get(k)
	}
	err = mapstructure.Decode(flat, &pb)
	return pb, err
}

func (s *ChatbotService) browseJobs(ctx context.Context, ev ChatEvent, seeker *domain.JobSeeker) error {
	jobs, err := s.stores.Jobs.ListActive(ctx, domain.JobFilter{
		OnlyOpenAt: s.now(),
		ForElderly: seeker.IsElderly,
		Limit:      chatJobLimit,
	})
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		if seeker.IsElderly {
			return s.reply(ctx, ev, "ไม่พบงานสำหรับผู้สูงอายุที่เปิดรับสมัครในขณะนี้")
		}
		return s.reply(ctx, ev, "ไม่พบงานที่เปิดรับสมัครในขณะนี้")
	}

	var b strings.Builder
	b.WriteString("📋 งานที่เปิดรับสมัคร")
	for i, job := range jobs {
		fmt.Fprintf(&b, "\n\n%d. %s\n%s | %s", i+1, job.Title, job.CompanyName, job.Location)
		if job.Salary != "" {
			b.WriteString("\n💰 " + job.Salary)
		}
		fmt.Fprintf(&b, "\n%s/jobs/%s", s.liffURL, job.ID)
	}
	return s.reply(ctx, ev, b.String())
}

func (s *ChatbotService) jobDetails(ctx context.Context, ev ChatEvent, seeker *domain.JobSeeker, jobID string) error {
	if jobID == "" {
		return s.reply(ctx, ev, errorText("ไม่พบงานที่ต้องการ"))
	}
	job, err := s.stores.Jobs.GetByID(ctx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.reply(ctx, ev, errorText("ไม่พบงานที่ต้องการ"))
	}
	if err != nil {
		return err
	}
	_, err = s.stores.Applications.GetByJobAndSeeker(ctx, job.ID, seeker.ID)
	switch {
	case err == nil:
		return s.reply(ctx, ev, jobDetailText(job), "✅ คุณได้สมัครงานนี้แล้ว")
	case errors.Is(err, domain.ErrNotFound):
		return s.reply(ctx, ev, jobDetailText(job))
	}
	return err
}

func (s *ChatbotService) applyJob(ctx context.Context, ev ChatEvent, seeker *domain.JobSeeker, jobID string) error {
	if jobID == "" {
		return s.reply(ctx, ev, errorText("งานนี้ไม่เปิดรับสมัครแล้ว"))
	}
	p := security.Principal{Role: domain.RoleSeeker, SeekerID: seeker.ID, UserID: seeker.UserID}
	_, err := s.applications.Apply(ctx, p, ApplyInput{JobID: jobID})
	switch {
	case errors.Is(err, domain.ErrConflict):
		return s.reply(ctx, ev, errorText("คุณได้สมัครงานนี้แล้ว"))
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidState):
		return s.reply(ctx, ev, errorText("งานนี้ไม่เปิดรับสมัครแล้ว"))
	case err != nil:
		return err
	}
	if seeker.IsElderly {
		return s.reply(ctx, ev, successText("สมัครงานสำเร็จ! ทีมงานจะติดต่อกลับเพื่อขอข้อมูลเพิ่มเติม (เช่น ทักษะที่ถนัด, พื้นที่ที่สามารถทำงานได้)"))
	}
	return s.reply(ctx, ev, successText("สมัครงานสำเร็จ! เราจะแจ้งผลการพิจารณาให้ทราบ"))
}

func (s *ChatbotService) myApplications(ctx context.Context, ev ChatEvent, seeker *domain.JobSeeker) error {
	apps, err := s.stores.Applications.List(ctx, domain.ApplicationFilter{SeekerID: seeker.ID, Limit: chatJobLimit})
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		return s.reply(ctx, ev, "คุณยังไม่มีใบสมัครงาน")
	}
	var b strings.Builder
	b.WriteString("📝 ใบสมัครของฉัน")
	for _, app := range apps {
		fmt.Fprintf(&b, "\n\n%s %s\nสถานะ: %s", statusEmoji(app.Status), app.JobTitle, StatusLabel(app.Status))
	}
	return s.reply(ctx, ev, b.String())
}

func (s *ChatbotService) notifications(ctx context.Context, ev ChatEvent, seeker *domain.JobSeeker) error {
	ns, err := s.stores.Notifications.ListFor(ctx, domain.Recipient{SeekerID: seeker.ID}, true, chatNotificationLimit)
	if err != nil {
		return err
	}
	if len(ns) == 0 {
		return s.reply(ctx, ev, "ไม่มีการแจ้งเตือนใหม่")
	}
	texts := make([]string, 0, len(ns))
	for _, n := range ns {
		texts = append(texts, "🔔 "+n.Title+"\n"+n.Message)
	}
	return s.reply(ctx, ev, texts...)
}

func (s *ChatbotService) reply(ctx context.Context, ev ChatEvent, texts ...string) error {
	if s.transport == nil {
		return errors.New("messaging transport not configured")
	}
	if ev.ReplyToken == "" {
		return s.transport.Push(ctx, ev.UserID, texts...)
	}
	return s.transport.Reply(ctx, ev.ReplyToken, texts...)
}

func (s *ChatbotService) welcomeText() string {
	return "ยินดีต้อนรับ! 👋\nระบบหางานสำหรับผู้สูงอายุ\n\n" +
		`พิมพ์ "สมัคร" เพื่อลงทะเบียน` + "\n" +
		`มีบัญชีบนเว็บแล้ว? พิมพ์ "เชื่อม" ตามด้วยรหัสจากหน้าโปรไฟล์`
}

func mainMenuText() string {
	return "เมนูหลัก\n\n🔍 ดูงานทั้งหมด\n📝 ใบสมัครของฉัน\n👤 แก้ไขโปรไฟล์\n🔔 การแจ้งเตือน"
}

func jobDetailText(job *domain.Job) string {
	salary := job.Salary
	if salary == "" {
		salary = "ไม่ระบุ"
	}
	text := fmt.Sprintf("📋 %s\n\nบริษัท: %s\nสถานที่: %s\nเงินเดือน: %s\nประเภท: %s",
		job.Title, job.CompanyName, job.Location, salary, jobTypeLabel(job.JobType))
	if job.Requirements != "" {
		text += "\n\nคุณสมบัติ:\n" + job.Requirements
	}
	return text
}

func statusEmoji(s domain.ApplicationStatus) string {
	switch s {
	case domain.StatusPending:
		return "⏳"
	case domain.StatusReviewing:
		return "👀"
	case domain.StatusAccepted:
		return "✅"
	case domain.StatusRejected:
		return "❌"
	case domain.StatusWithdrawn:
		return "↩️"
	}
	return "📄"
}

func successText(msg string) string { return "✅ สำเร็จ\n" + msg }

func errorText(msg string) string { return "❌ เกิดข้อผิดพลาด\n" + msg }
