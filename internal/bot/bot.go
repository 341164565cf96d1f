package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tarbeev/taskengine/internal/apperr"
	"github.com/tarbeev/taskengine/internal/config"
	"github.com/tarbeev/taskengine/internal/model"
	"github.com/tarbeev/taskengine/internal/query"
	"github.com/tarbeev/taskengine/internal/repository"
	"github.com/tarbeev/taskengine/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbTrashPrefix    = "trash:"
	cbRestorePrefix  = "restore:"
	cbSubtaskPrefix  = "subtask:"
)

const (
	iconPending    = "⬜"
	iconInProgress = "🔶"
	iconDone       = "✅"
	iconOverdue    = "⚠️"
	iconRecurring  = "♻️"
	iconTrash      = "🗑"
)

const helpText = `<b>Commands</b>
/new title | description — create a task
/tasks — list open tasks
/today, /week, /overdue — due-date views
/find text — search title, description and notes
/tag name — tasks carrying the tag
/done N [N…] — toggle tasks from the last listing
/subs N — show a task's checklist
/repeat N daily|weekly mon,wed|monthly 15 [every K] — make a task recurring
/preview daily|weekly mon,wed|monthly 15 [every K] — preview the schedule
/trash — trashed tasks, /restore N, /purge N
/tags — your tags`

// session remembers the last listing per chat so short /done-style
// commands can reference tasks by number.
type session struct {
	listing []string // task ids in display order
	trash   bool     // whether the listing came from the trash view
}

// Bot is the presentation collaborator: every handler maps onto one engine
// call and renders its result.
type Bot struct {
	api          *tgbotapi.BotAPI
	userRepo     *repository.UserRepository
	taskSvc      *service.TaskService
	subtaskSvc   *service.SubtaskService
	recurSvc     *service.RecurrenceService
	lifecycleSvc *service.LifecycleService
	tagSvc       *service.TagService
	summarySvc   *service.SummaryService
	config       *config.Config
	sessions     map[int64]*session
	mu           sync.Mutex
}

func New(
	token string,
	userRepo *repository.UserRepository,
	taskSvc *service.TaskService,
	subtaskSvc *service.SubtaskService,
	recurSvc *service.RecurrenceService,
	lifecycleSvc *service.LifecycleService,
	tagSvc *service.TagService,
	summarySvc *service.SummaryService,
	cfg *config.Config,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:          api,
		userRepo:     userRepo,
		taskSvc:      taskSvc,
		subtaskSvc:   subtaskSvc,
		recurSvc:     recurSvc,
		lifecycleSvc: lifecycleSvc,
		tagSvc:       tagSvc,
		summarySvc:   summarySvc,
		config:       cfg,
		sessions:     make(map[int64]*session),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}
	return ctx.Err()
}

// SendDailySummaries delivers the digest to every known user.
func (b *Bot) SendDailySummaries(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	now := time.Now()
	for _, user := range users {
		text, err := b.summarySvc.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("summary for user %d: %v", user.ID, err)
			continue
		}
		b.sendHTML(user.TelegramID, text)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.UpsertFromTelegram(ctx, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName)
	if err != nil {
		return err
	}
	chatID := msg.Chat.ID
	now := time.Now()

	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.sendHTML(chatID, "👋 Hi! I keep your tasks.\n\n"+helpText)
	case "help":
		b.sendHTML(chatID, helpText)
	case "new":
		return b.cmdNew(ctx, user, chatID, args)
	case "tasks":
		return b.listAndRender(ctx, user, chatID, query.Spec{Sort: query.SortDueDate}, "📋 <b>Open tasks</b>", now)
	case "today":
		due := query.Today(now)
		return b.listAndRender(ctx, user, chatID, query.Spec{Due: &due, Sort: query.SortPriority}, "⏳ <b>Due today</b>", now)
	case "week":
		due := query.ThisWeek(now)
		return b.listAndRender(ctx, user, chatID, query.Spec{Due: &due, Sort: query.SortDueDate}, "📅 <b>This week</b>", now)
	case "overdue":
		due := query.DueFilter{Kind: query.DueOverdue, Reference: now}
		return b.listAndRender(ctx, user, chatID, query.Spec{Due: &due, Sort: query.SortDueDate}, "⚠️ <b>Overdue</b>", now)
	case "find":
		if args == "" {
			b.sendHTML(chatID, "Usage: /find text")
			return nil
		}
		return b.listAndRender(ctx, user, chatID, query.Spec{Text: args, Sort: query.SortCreatedAt}, fmt.Sprintf("🔍 <b>Matches for</b> %s", html.EscapeString(args)), now)
	case "tag":
		return b.cmdTag(ctx, user, chatID, args, now)
	case "tags":
		return b.cmdTags(ctx, user, chatID)
	case "done":
		return b.cmdDone(ctx, user, chatID, args, now)
	case "subs":
		return b.cmdSubs(ctx, user, chatID, args)
	case "repeat":
		return b.cmdRepeat(ctx, user, chatID, args, now)
	case "preview":
		return b.cmdPreview(chatID, args, now)
	case "trash":
		return b.cmdTrash(ctx, user, chatID)
	case "restore":
		return b.cmdRestore(ctx, user, chatID, args)
	case "purge":
		return b.cmdPurge(ctx, user, chatID, args)
	case "":
		b.sendHTML(chatID, "Use /new to add a task or /help for commands.")
	default:
		b.sendHTML(chatID, "Unknown command. /help lists what I understand.")
	}
	return nil
}

func (b *Bot) cmdNew(ctx context.Context, user *model.User, chatID int64, args string) error {
	if args == "" {
		b.sendHTML(chatID, "Usage: /new title | description")
		return nil
	}
	title, description := args, ""
	if i := strings.Index(args, "|"); i >= 0 {
		title = strings.TrimSpace(args[:i])
		description = strings.TrimSpace(args[i+1:])
	}
	task, err := b.taskSvc.Create(ctx, user.ID, service.TaskInput{Title: title, Description: description})
	if err != nil {
		return b.reportError(chatID, err)
	}
	b.sendHTML(chatID, fmt.Sprintf("➕ Added <b>%s</b>", html.EscapeString(task.Title)))
	return nil
}

func (b *Bot) cmdTag(ctx context.Context, user *model.User, chatID int64, args string, now time.Time) error {
	if args == "" {
		b.sendHTML(chatID, "Usage: /tag name")
		return nil
	}
	tags, err := b.tagSvc.List(ctx, user)
	if err != nil {
		return err
	}
	var tagID string
	for _, tag := range tags {
		if strings.EqualFold(tag.Name, args) {
			tagID = tag.ID
			break
		}
	}
	if tagID == "" {
		b.sendHTML(chatID, fmt.Sprintf("No tag named <b>%s</b>.", html.EscapeString(args)))
		return nil
	}
	spec := query.Spec{TagIDs: []string{tagID}, Sort: query.SortDueDate}
	return b.listAndRender(ctx, user, chatID, spec, fmt.Sprintf("🏷 <b>%s</b>", html.EscapeString(args)), now)
}

func (b *Bot) cmdTags(ctx context.Context, user *model.User, chatID int64) error {
	tags, err := b.tagSvc.List(ctx, user)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		b.sendHTML(chatID, "No tags yet.")
		return nil
	}
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = html.EscapeString(tag.Name)
	}
	b.sendHTML(chatID, "🏷 "+strings.Join(names, ", "))
	return nil
}

func (b *Bot) cmdDone(ctx context.Context, user *model.User, chatID int64, args string, now time.Time) error {
	ids, err := b.resolveListingRefs(chatID, args, false)
	if err != nil {
		b.sendHTML(chatID, err.Error())
		return nil
	}
	if len(ids) == 1 {
		result, err := b.taskSvc.ToggleCompletion(ctx, user.ID, ids[0], now)
		if err != nil {
			return b.reportError(chatID, err)
		}
		b.renderToggle(chatID, result)
		return nil
	}
	results, err := b.taskSvc.BulkToggle(ctx, user.ID, ids, now)
	if err != nil {
		return b.reportError(chatID, err)
	}
	for _, result := range results {
		b.renderToggle(chatID, result)
	}
	return nil
}

func (b *Bot) cmdSubs(ctx context.Context, user *model.User, chatID int64, args string) error {
	ids, err := b.resolveListingRefs(chatID, args, false)
	if err != nil || len(ids) != 1 {
		b.sendHTML(chatID, "Usage: /subs N (one task from the last listing)")
		return nil
	}
	page, err := b.taskSvc.List(ctx, user.ID, query.Spec{Limit: query.MaxLimit})
	if err != nil {
		return err
	}
	for _, item := range page.Items {
		if item.Task.ID != ids[0] {
			continue
		}
		if len(item.Task.Subtasks) == 0 {
			b.sendHTML(chatID, "No subtasks on this task.")
			return nil
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, sub := range item.Task.Subtasks {
			mark := iconPending
			if sub.IsCompleted {
				mark = iconDone
			}
			label := fmt.Sprintf("%s %s", mark, sub.Description)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, cbSubtaskPrefix+sub.ID),
			))
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("<b>%s</b> — checklist", html.EscapeString(item.Task.Title)))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("send checklist: %v", err)
		}
		return nil
	}
	b.sendHTML(chatID, "Task not found in the current listing.")
	return nil
}

// cmdRepeat parses "N daily|weekly days|monthly day [every K]" and attaches
// the pattern to the referenced task.
func (b *Bot) cmdRepeat(ctx context.Context, user *model.User, chatID int64, args string, now time.Time) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.sendHTML(chatID, "Usage: /repeat N daily|weekly mon,wed|monthly 15 [every K]")
		return nil
	}
	ids, err := b.resolveListingRefs(chatID, fields[0], false)
	if err != nil || len(ids) != 1 {
		b.sendHTML(chatID, "First argument must reference one task from the last listing.")
		return nil
	}
	spec, err := parsePatternSpec(fields[1:])
	if err != nil {
		b.sendHTML(chatID, err.Error())
		return nil
	}
	pattern, err := b.recurSvc.Set(ctx, user.ID, ids[0], spec, now)
	if err != nil {
		return b.reportError(chatID, err)
	}
	b.sendHTML(chatID, fmt.Sprintf("%s Repeats %s; next on %s.",
		iconRecurring, describePattern(spec), pattern.NextOccurrence.Format("2006-01-02")))
	return nil
}

func (b *Bot) cmdPreview(chatID int64, args string, now time.Time) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.sendHTML(chatID, "Usage: /preview daily|weekly mon,wed|monthly 15 [every K]")
		return nil
	}
	spec, err := parsePatternSpec(fields)
	if err != nil {
		b.sendHTML(chatID, err.Error())
		return nil
	}
	dates, err := b.recurSvc.Preview(spec, now, 5)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if len(dates) == 0 {
		b.sendHTML(chatID, "This pattern produces no occurrences.")
		return nil
	}
	lines := make([]string, len(dates))
	for i, d := range dates {
		lines[i] = fmt.Sprintf("%d. %s (%s)", i+1, d.Format("2006-01-02"), d.Weekday())
	}
	b.sendHTML(chatID, fmt.Sprintf("%s %s:\n%s", iconRecurring, describePattern(spec), strings.Join(lines, "\n")))
	return nil
}

func (b *Bot) cmdTrash(ctx context.Context, user *model.User, chatID int64) error {
	page, err := b.taskSvc.Trash(ctx, user.ID, 1, query.DefaultLimit)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if len(page.Items) == 0 {
		b.sendHTML(chatID, "Trash is empty.")
		b.setSession(chatID, nil, true)
		return nil
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>Trash</b> (%d)\n", iconTrash, page.Total))
	listing := make([]string, len(page.Items))
	for i, item := range page.Items {
		listing[i] = item.Task.ID
		sb.WriteString(fmt.Sprintf("%d. %s — deleted %s\n", i+1,
			html.EscapeString(item.Task.Title),
			item.Task.DeletedAt.Time.Format("2006-01-02")))
	}
	sb.WriteString("\n/restore N brings a task back, /purge N removes it forever.")
	b.setSession(chatID, listing, true)
	b.sendHTML(chatID, sb.String())
	return nil
}

func (b *Bot) cmdRestore(ctx context.Context, user *model.User, chatID int64, args string) error {
	ids, err := b.resolveListingRefs(chatID, args, true)
	if err != nil || len(ids) != 1 {
		b.sendHTML(chatID, "Usage: /restore N (run /trash first)")
		return nil
	}
	task, err := b.lifecycleSvc.Restore(ctx, user.ID, ids[0])
	if err != nil {
		return b.reportError(chatID, err)
	}
	b.sendHTML(chatID, fmt.Sprintf("↩️ Restored <b>%s</b>", html.EscapeString(task.Title)))
	return nil
}

func (b *Bot) cmdPurge(ctx context.Context, user *model.User, chatID int64, args string) error {
	ids, err := b.resolveListingRefs(chatID, args, true)
	if err != nil || len(ids) != 1 {
		b.sendHTML(chatID, "Usage: /purge N (run /trash first)")
		return nil
	}
	if err := b.lifecycleSvc.PermanentDelete(ctx, user.ID, ids[0]); err != nil {
		return b.reportError(chatID, err)
	}
	b.sendHTML(chatID, "🧹 Gone for good.")
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.From == nil {
		return nil
	}
	user, err := b.userRepo.UpsertFromTelegram(ctx, cb.From.ID, cb.From.FirstName, cb.From.LastName, cb.From.UserName)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID
	now := time.Now()

	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("answer callback: %v", err)
		}
	}()

	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		result, err := b.taskSvc.ToggleCompletion(ctx, user.ID, strings.TrimPrefix(cb.Data, cbCompletePrefix), now)
		if err != nil {
			return b.reportError(chatID, err)
		}
		b.renderToggle(chatID, result)
	case strings.HasPrefix(cb.Data, cbTrashPrefix):
		if err := b.lifecycleSvc.SoftDelete(ctx, user.ID, strings.TrimPrefix(cb.Data, cbTrashPrefix)); err != nil {
			return b.reportError(chatID, err)
		}
		b.sendHTML(chatID, iconTrash+" Moved to trash. /trash to review.")
	case strings.HasPrefix(cb.Data, cbRestorePrefix):
		task, err := b.lifecycleSvc.Restore(ctx, user.ID, strings.TrimPrefix(cb.Data, cbRestorePrefix))
		if err != nil {
			return b.reportError(chatID, err)
		}
		b.sendHTML(chatID, fmt.Sprintf("↩️ Restored <b>%s</b>", html.EscapeString(task.Title)))
	case strings.HasPrefix(cb.Data, cbSubtaskPrefix):
		result, err := b.taskSvc.ToggleSubtask(ctx, user.ID, strings.TrimPrefix(cb.Data, cbSubtaskPrefix), now)
		if err != nil {
			return b.reportError(chatID, err)
		}
		if result.CascadedParent != nil {
			b.renderToggle(chatID, ToggleFromCascade(result))
		}
	}
	return nil
}

// ToggleFromCascade reshapes a subtask cascade result so the standard
// toggle rendering announces the auto-completed parent.
func ToggleFromCascade(result service.ToggleResult) service.ToggleResult {
	return service.ToggleResult{Task: result.CascadedParent, GeneratedInstance: result.GeneratedInstance}
}

func (b *Bot) listAndRender(ctx context.Context, user *model.User, chatID int64, spec query.Spec, header string, now time.Time) error {
	page, err := b.taskSvc.List(ctx, user.ID, spec)
	if err != nil {
		return b.reportError(chatID, err)
	}
	if len(page.Items) == 0 {
		b.sendHTML(chatID, header+"\n— nothing here")
		b.setSession(chatID, nil, false)
		return nil
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString(fmt.Sprintf(" — %d\n", page.Total))
	listing := make([]string, len(page.Items))
	for i, item := range page.Items {
		listing[i] = item.Task.ID
		sb.WriteString(formatTaskLine(i+1, item.Task, now))
	}
	if page.HasNext {
		sb.WriteString(fmt.Sprintf("\nShowing %d of %d.", len(page.Items), page.Total))
	}
	sb.WriteString("\n/done N toggles, /subs N shows the checklist.")
	b.setSession(chatID, listing, false)
	b.sendHTML(chatID, sb.String())
	return nil
}

func (b *Bot) renderToggle(chatID int64, result service.ToggleResult) {
	if result.Task == nil {
		return
	}
	task := result.Task
	if task.Completed() {
		b.sendHTML(chatID, fmt.Sprintf("%s Completed <b>%s</b>", iconDone, html.EscapeString(task.Title)))
	} else {
		b.sendHTML(chatID, fmt.Sprintf("%s Reopened <b>%s</b>", iconPending, html.EscapeString(task.Title)))
	}
	if gen := result.GeneratedInstance; gen != nil && gen.DueDate != nil {
		b.sendHTML(chatID, fmt.Sprintf("%s Next occurrence scheduled for %s.",
			iconRecurring, gen.DueDate.Format("2006-01-02")))
	}
}

func (b *Bot) reportError(chatID int64, err error) error {
	switch {
	case apperr.Is(err, apperr.Validation):
		b.sendHTML(chatID, "🚫 "+html.EscapeString(err.Error()))
	case apperr.Is(err, apperr.NotFound):
		b.sendHTML(chatID, "🤷 Not found.")
	case apperr.Is(err, apperr.State):
		b.sendHTML(chatID, "🚫 "+html.EscapeString(err.Error()))
	case apperr.Is(err, apperr.Conflict):
		b.sendHTML(chatID, "🚫 "+html.EscapeString(err.Error()))
	default:
		b.sendHTML(chatID, "Something went wrong, try again.")
		return err
	}
	return nil
}

func (b *Bot) setSession(chatID int64, listing []string, trash bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = &session{listing: listing, trash: trash}
}

// resolveListingRefs turns "2 5" style arguments into task ids from the
// chat's last listing. fromTrash requires the listing to be the trash view.
func (b *Bot) resolveListingRefs(chatID int64, args string, fromTrash bool) ([]string, error) {
	b.mu.Lock()
	sess := b.sessions[chatID]
	b.mu.Unlock()

	if sess == nil || len(sess.listing) == 0 {
		return nil, fmt.Errorf("no listing yet — run /tasks or /trash first")
	}
	if sess.trash != fromTrash {
		if fromTrash {
			return nil, fmt.Errorf("run /trash first")
		}
		return nil, fmt.Errorf("run /tasks first")
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, fmt.Errorf("give at least one task number")
	}
	var ids []string
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > len(sess.listing) {
			return nil, fmt.Errorf("no task number %q in the last listing", f)
		}
		ids = append(ids, sess.listing[n-1])
	}
	return ids, nil
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send message: %v", err)
	}
}

func formatTaskLine(n int, task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := iconPending
	switch {
	case task.Completed():
		icon = iconDone
	case task.Status == model.StatusInProgress:
		icon = iconInProgress
	case task.DueDate != nil && now.After(*task.DueDate):
		icon = iconOverdue
	}

	sb.WriteString(fmt.Sprintf("%d. %s %s", n, icon, html.EscapeString(strings.TrimSpace(task.Title))))

	if len(task.Tags) > 0 {
		names := make([]string, len(task.Tags))
		for i, tag := range task.Tags {
			names[i] = html.EscapeString(tag.Name)
		}
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", strings.Join(names, ", ")))
	}
	if task.DueDate != nil {
		sb.WriteString(fmt.Sprintf(" — due %s", task.DueDate.Format("2006-01-02")))
	}
	if total := len(task.Subtasks); total > 0 {
		done := 0
		for _, sub := range task.Subtasks {
			if sub.IsCompleted {
				done++
			}
		}
		sb.WriteString(fmt.Sprintf(" [%d/%d]", done, total))
	}

	sb.WriteByte('\n')
	return sb.String()
}

// parsePatternSpec understands "daily", "weekly mon,wed,fri", "monthly 15",
// each optionally followed by "every K".
func parsePatternSpec(fields []string) (service.PatternSpec, error) {
	var spec service.PatternSpec
	spec.Interval = 1

	if len(fields) == 0 {
		return spec, fmt.Errorf("missing frequency")
	}

	consumed := 1
	switch strings.ToLower(fields[0]) {
	case "daily":
		spec.Frequency = model.FreqDaily
	case "weekly":
		if len(fields) < 2 {
			return spec, fmt.Errorf("weekly needs days, e.g. weekly mon,wed,fri")
		}
		days, err := parseWeekdays(fields[1])
		if err != nil {
			return spec, err
		}
		spec.Frequency = model.FreqWeekly
		spec.DaysOfWeek = days
		consumed = 2
	case "monthly":
		if len(fields) < 2 {
			return spec, fmt.Errorf("monthly needs a day, e.g. monthly 15")
		}
		day, err := strconv.Atoi(fields[1])
		if err != nil || day < 1 || day > 31 {
			return spec, fmt.Errorf("day of month must be 1-31, got %q", fields[1])
		}
		spec.Frequency = model.FreqMonthly
		spec.DayOfMonth = day
		consumed = 2
	default:
		return spec, fmt.Errorf("unknown frequency %q (daily, weekly or monthly)", fields[0])
	}

	rest := fields[consumed:]
	if len(rest) == 2 && strings.EqualFold(rest[0], "every") {
		k, err := strconv.Atoi(rest[1])
		if err != nil || k < 1 {
			return spec, fmt.Errorf("interval must be a positive number, got %q", rest[1])
		}
		spec.Interval = k
	} else if len(rest) != 0 {
		return spec, fmt.Errorf("trailing arguments %q", strings.Join(rest, " "))
	}
	return spec, nil
}

func describePattern(spec service.PatternSpec) string {
	every := ""
	if spec.Interval > 1 {
		every = fmt.Sprintf(" every %d", spec.Interval)
	}
	switch spec.Frequency {
	case model.FreqWeekly:
		names := make([]string, len(spec.DaysOfWeek))
		for i, d := range spec.DaysOfWeek {
			names[i] = d.String()[:3]
		}
		return fmt.Sprintf("weekly%s on %s", every, strings.Join(names, ", "))
	case model.FreqMonthly:
		return fmt.Sprintf("monthly%s on day %d", every, spec.DayOfMonth)
	default:
		return string(spec.Frequency) + every
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(csv string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(csv, ",") {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q (use mon..sun)", part)
		}
		days = append(days, day)
	}
	return days, nil
}
