package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	"github.com/noah-isme/alumni-portal-api/internal/service"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
)

type accountResolver interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
}

// Config tunes the Telegram front-end.
type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Bot is the Telegram chat front-end to the portal. It mirrors the HTTP API
// for the everyday alumni flows and a minimal admin review loop.
type Bot struct {
	api            *tgbotapi.BotAPI
	accounts       accountResolver
	users          *service.UserService
	auth           *service.AuthService
	courses        *service.CourseService
	courseRequests *service.CourseRequestService
	passRequests   *service.PassRequestService
	logger         *zap.Logger

	pollTimeout time.Duration

	// lastCatalog remembers the numbered course list each chat saw so
	// "/enroll 2" resolves against what the user is looking at.
	mu          sync.Mutex
	lastCatalog map[int64][]string
}

// New constructs the bot and verifies the token against the Telegram API.
func New(cfg Config, accounts accountResolver, users *service.UserService, auth *service.AuthService, courses *service.CourseService, courseRequests *service.CourseRequestService, passRequests *service.PassRequestService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bot{
		api:            api,
		accounts:       accounts,
		users:          users,
		auth:           auth,
		courses:        courses,
		courseRequests: courseRequests,
		passRequests:   passRequests,
		logger:         logger,
		pollTimeout:    timeout,
		lastCatalog:    make(map[int64][]string),
	}, nil
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = int(b.pollTimeout.Seconds())

	updates := b.api.GetUpdatesChan(updateCfg)
	b.logger.Info("telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendOutcome delivers a resolution message to a chat. It implements the
// notification dispatcher's sender interface.
func (b *Bot) SendOutcome(ctx context.Context, chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var reply string
	switch msg.Command() {
	case "start", "help":
		reply = helpText
	case "link":
		reply = b.handleLink(ctx, msg)
	case "courses":
		reply = b.handleCourses(ctx, msg)
	case "enroll":
		reply = b.handleEnroll(ctx, msg)
	case "pass":
		reply = b.handlePass(ctx, msg)
	case "requests":
		reply = b.handleRequests(ctx, msg)
	case "cancel":
		reply = b.handleCancel(ctx, msg)
	case "clear":
		reply = b.handleClear(ctx, msg)
	case "pending":
		reply = b.handlePending(ctx, msg)
	case "approve":
		reply = b.handleResolve(ctx, msg, models.RequestStatusApproved)
	case "reject":
		reply = b.handleResolve(ctx, msg, models.RequestStatusRejected)
	default:
		reply = "Unknown command. Try /help."
	}

	if reply == "" {
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		b.logger.Warn("failed to send reply", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) string {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return "Usage: /link <email> <password>"
	}
	session, err := b.auth.Login(ctx, models.LoginRequest{Email: args[0], Password: args[1]})
	if err != nil {
		return userMessage(err)
	}
	handle := ""
	if msg.From != nil {
		handle = msg.From.UserName
	}
	if err := b.users.LinkTelegram(ctx, session.User.ID, msg.Chat.ID, handle); err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("Linked to %s. You will get request updates here.", session.User.Email)
}

func (b *Bot) handleCourses(ctx context.Context, msg *tgbotapi.Message) string {
	user, errMsg := b.linkedUser(ctx, msg.Chat.ID)
	if errMsg != "" {
		return errMsg
	}
	courses, err := b.courses.ListAvailable(ctx, user.ID)
	if err != nil {
		return userMessage(err)
	}

	b.mu.Lock()
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	b.lastCatalog[msg.Chat.ID] = ids
	b.mu.Unlock()

	return renderCourses(courses)
}

func (b *Bot) handleEnroll(ctx context.Context, msg *tgbotapi.Message) string {
	user, errMsg := b.linkedUser(ctx, msg.Chat.ID)
	if errMsg != "" {
		return errMsg
	}
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		return "Usage: /enroll <number from /courses>"
	}

	courseID := arg
	if index, err := strconv.Atoi(arg); err == nil {
		b.mu.Lock()
		ids := b.lastCatalog[msg.Chat.ID]
		b.mu.Unlock()
		if index < 1 || index > len(ids) {
			return "That number does not match the last /courses list."
		}
		courseID = ids[index-1]
	}

	detail, err := b.courseRequests.Create(ctx, user.ID, service.CreateCourseRequest{CourseID: courseID})
	if err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("Request submitted for %q. You will hear back once it is reviewed.", detail.CourseName)
}

func (b *Bot) handlePass(ctx context.Context, msg *tgbotapi.Message) string {
	user, errMsg := b.linkedUser(ctx, msg.Chat.ID)
	if errMsg != "" {
		return errMsg
	}
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return "Usage: /pass <YYYY-MM-DD> [guest; guest; ...]"
	}
	parts := strings.SplitN(args, " ", 2)
	req := service.CreatePassRequest{RequestedDate: parts[0]}
	if len(parts) == 2 {
		for _, g := range strings.Split(parts[1], ";") {
			if g = strings.TrimSpace(g); g != "" {
				req.Guests = append(req.Guests, g)
			}
		}
	}
	detail, err := b.passRequests.Create(ctx, user.ID, req)
	if err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("Campus pass requested for %s with %d guest(s).", detail.RequestedDate.Format("2006-01-02"), len(detail.Guests))
}

func (b *Bot) handleRequests(ctx context.Context, msg *tgbotapi.Message) string {
	user, errMsg := b.linkedUser(ctx, msg.Chat.ID)
	if errMsg != "" {
		return errMsg
	}
	courseReqs, err := b.courseRequests.List(ctx, models.RequestFilter{UserID: user.ID})
	if err != nil {
		return userMessage(err)
	}
	passReqs, err := b.passRequests.List(ctx, models.RequestFilter{UserID: user.ID})
	if err != nil {
		return userMessage(err)
	}
	return renderRequests(courseReqs, passReqs)
}

func (b *Bot) handleCancel(ctx context.Context, msg *tgbotapi.Message) string {
	user, errMsg := b.linkedUser(ctx, msg.Chat.ID)
	if errMsg != "" {
		return errMsg
	}
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return "Usage: /cancel <request id from /requests>"
	}
	err := b.courseRequests.DeletePending(ctx, id, user.ID)
	if appErrors.Is(err, appErrors.ErrNotFound) {
		err = b.passRequests.DeletePending(ctx, id, user.ID)
	}
	if err != nil {
		return userMessage(err)
	}
	return "Request withdrawn."
}

func (b *Bot) handleClear(ctx context.Context, msg *tgbotapi.Message) string {
	user, errMsg := b.linkedUser(ctx, msg.Chat.ID)
	if errMsg != "" {
		return errMsg
	}
	coursePurged, err := b.courseRequests.PurgeResolved(ctx, user.ID)
	if err != nil {
		return userMessage(err)
	}
	passPurged, err := b.passRequests.PurgeResolved(ctx, user.ID)
	if err != nil {
		return userMessage(err)
	}
	return fmt.Sprintf("Cleared %d resolved request(s). Open requests stay put.", coursePurged+passPurged)
}

func (b *Bot) handlePending(ctx context.Context, msg *tgbotapi.Message) string {
	if _, errMsg := b.linkedAdmin(ctx, msg.Chat.ID); errMsg != "" {
		return errMsg
	}

	courseReqs, err := b.courseRequests.List(ctx, models.RequestFilter{Status: models.RequestStatusPending})
	if err != nil {
		return userMessage(err)
	}
	passReqs, err := b.passRequests.List(ctx, models.RequestFilter{Status: models.RequestStatusPending})
	if err != nil {
		return userMessage(err)
	}
	if len(courseReqs) == 0 && len(passReqs) == 0 {
		return "Nothing pending. Enjoy the quiet."
	}
	return renderPending(courseReqs, passReqs)
}

// handleResolve applies an admin decision to a request by id, trying the
// course queue first and falling back to passes. A request that vanished or
// was resolved by someone else produces a message, not a failure.
func (b *Bot) handleResolve(ctx context.Context, msg *tgbotapi.Message, outcome models.RequestStatus) string {
	_, errMsg := b.linkedAdmin(ctx, msg.Chat.ID)
	if errMsg != "" {
		return errMsg
	}
	args := strings.SplitN(strings.TrimSpace(msg.CommandArguments()), " ", 2)
	if args[0] == "" {
		return fmt.Sprintf("Usage: /%s <request id> [feedback]", msg.Command())
	}
	req := service.ResolveRequest{Outcome: outcome}
	if len(args) == 2 {
		req.Feedback = strings.TrimSpace(args[1])
	}

	_, err := b.courseRequests.Resolve(ctx, args[0], req)
	if appErrors.Is(err, appErrors.ErrNotFound) {
		_, err = b.passRequests.Resolve(ctx, args[0], req)
	}
	switch {
	case err == nil:
		return fmt.Sprintf("Request %s %s.", args[0], strings.ToLower(string(outcome)))
	case appErrors.Is(err, appErrors.ErrNotFound):
		return "That request no longer exists; probably withdrawn. Moving on."
	case appErrors.Is(err, appErrors.ErrInvalidState):
		return "That request was already resolved; the first decision stands."
	default:
		return userMessage(err)
	}
}

func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*models.User, string) {
	user, err := b.accounts.FindByTelegramID(ctx, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "This chat is not linked yet. Use /link <email> <password>."
		}
		return nil, userMessage(err)
	}
	return user, ""
}

func (b *Bot) linkedAdmin(ctx context.Context, chatID int64) (*models.User, string) {
	user, errMsg := b.linkedUser(ctx, chatID)
	if errMsg != "" {
		return nil, errMsg
	}
	if user.Role != models.RoleAdmin {
		return nil, "That command is for portal admins."
	}
	return user, ""
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	return appErrors.FromError(err).Message
}

const helpText = `Alumni portal bot. Commands:
/link <email> <password> - link this chat to your portal account
/courses - electives you can still request
/enroll <number> - request enrollment into a course from /courses
/pass <YYYY-MM-DD> [guest; guest] - request a campus pass
/requests - your requests and their statuses
/cancel <id> - withdraw a pending request
/clear - remove resolved requests from your history

Admin commands:
/pending - review open requests
/approve <id> [feedback]
/reject <id> [feedback]`
