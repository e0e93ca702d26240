package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/labook/users-api/internal/core/domain"
	"github.com/labook/users-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID      map[string]*domain.User
	deleted   []string
	findErr   error
	deleteErr error
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		clone := *u
		r.byID[u.ID] = &clone
	}
	return r
}

func (r *stubUserRepo) FindUsers(_ context.Context, q string) ([]*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*domain.User
	for _, u := range r.byID {
		if q == "" || strings.Contains(strings.ToLower(u.Name), strings.ToLower(q)) {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) FindViewByID(ctx context.Context, id string) (*domain.UserView, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := u.View()
	return &view, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Insert(_ context.Context, user *domain.User) error {
	for _, u := range r.byID {
		if u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	clone := *user
	r.byID[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// stubHasher "hashes" by prefixing, so fixtures stay readable.
type stubHasher struct {
	compareErr error
	compared   int
}

func (h *stubHasher) Hash(plain string) (string, error) { return "hash:" + plain, nil }

func (h *stubHasher) Compare(plain, hash string) (bool, error) {
	h.compared++
	if h.compareErr != nil {
		return false, h.compareErr
	}
	return hash == "hash:"+plain, nil
}

// stubTokens encodes the payload as the token itself, plus a fixed set of
// pre-issued fixture tokens.
type stubTokens struct {
	fixtures map[string]domain.TokenPayload
}

func (t *stubTokens) CreateToken(p domain.TokenPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return "jwt:" + string(b), nil
}

func (t *stubTokens) GetPayload(token string) (*domain.TokenPayload, error) {
	if p, ok := t.fixtures[token]; ok {
		return &p, nil
	}
	if raw, ok := strings.CutPrefix(token, "jwt:"); ok {
		var p domain.TokenPayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
	return nil, errors.New("invalid token")
}

type stubIDs struct{ next string }

func (g stubIDs) Generate() string { return g.next }

type stubAudit struct{ events []domain.AuditEvent }

func (a *stubAudit) Record(e domain.AuditEvent) { a.events = append(a.events, e) }

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	fulano = &domain.User{
		ID: "id-mock-fulano", Name: "Fulano", Email: "fulano@email.com",
		PasswordHash: "hash:fulano123", Role: domain.RoleNormal,
		CreatedAt: time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	ciclana = &domain.User{
		ID: "id-mock-ciclana", Name: "Ciclana", Email: "ciclana@email.com",
		PasswordHash: "hash:ciclana99", Role: domain.RoleNormal,
	}
	astrodev = &domain.User{
		ID: "id-mock-astrodev", Name: "Astrodev", Email: "astrodev@email.com",
		PasswordHash: "hash:astrodev99", Role: domain.RoleAdmin,
	}
	beltrano = &domain.User{
		ID: "id-mock-beltrano", Name: "Beltrano", Email: "beltrano@email.com",
		PasswordHash: "hash:beltrano99", Role: domain.RoleAdmin,
	}
	mestre = &domain.User{
		ID: "id-mock-mestre", Name: "Mestre", Email: "mestre@email.com",
		PasswordHash: "hash:mestre99", Role: domain.RoleMaster,
	}
	grao = &domain.User{
		ID: "id-mock-grao", Name: "Grão Mestre", Email: "grao@email.com",
		PasswordHash: "hash:grao99", Role: domain.RoleMaster,
	}
)

func fixtureTokens() *stubTokens {
	return &stubTokens{fixtures: map[string]domain.TokenPayload{
		"token-mock-fulano":   domain.PayloadFor(fulano),
		"token-mock-astrodev": domain.PayloadFor(astrodev),
		"token-mock-mestre":   domain.PayloadFor(mestre),
	}}
}

type harness struct {
	svc    *UserService
	repo   *stubUserRepo
	hasher *stubHasher
	audit  *stubAudit
}

func newHarness() *harness {
	h := &harness{
		repo:   newStubUserRepo(fulano, ciclana, astrodev, beltrano, mestre, grao),
		hasher: &stubHasher{},
		audit:  &stubAudit{},
	}
	h.svc = NewUserService(h.repo, stubIDs{next: "id-new"}, h.hasher, fixtureTokens(), h.audit, zerolog.Nop())
	return h
}

func strPtr(s string) *string { return &s }

func signupInput() ports.SignupInput {
	return ports.SignupInput{Name: "Nova", Email: "nova@email.com", Password: "segredo1"}
}

func loginInput(email, password string) ports.LoginInput {
	return ports.LoginInput{Email: email, Password: password}
}

func listInput(q, token string) ports.ListUsersInput {
	return ports.ListUsersInput{Query: q, Token: token}
}

func getInput(id, token string) ports.GetUserInput {
	return ports.GetUserInput{ID: id, Token: token}
}

func deleteInput(id, token string, password *string) ports.DeleteUserInput {
	return ports.DeleteUserInput{ID: id, Token: token, Password: password}
}

func assertKind(t *testing.T, err, kind error, msg string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	if msg != "" && err.Error() != msg {
		t.Fatalf("expected message %q, got %q", msg, err.Error())
	}
}

// ---------------------------------------------------------------------------
// Signup / Login
// ---------------------------------------------------------------------------

func TestUserService_Signup_Success(t *testing.T) {
	h := newHarness()

	out, err := h.svc.Signup(context.Background(), signupInput())
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if out.Message != "Cadastro realizado com sucesso" {
		t.Fatalf("unexpected message: %s", out.Message)
	}

	stored, ok := h.repo.byID["id-new"]
	if !ok {
		t.Fatalf("user was not persisted")
	}
	if stored.Role != domain.RoleNormal {
		t.Fatalf("signup must create NORMAL users, got %s", stored.Role)
	}
	if stored.PasswordHash != "hash:segredo1" {
		t.Fatalf("password was not hashed: %s", stored.PasswordHash)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}

	payload, err := fixtureTokens().GetPayload(out.Token)
	if err != nil {
		t.Fatalf("token does not decode: %v", err)
	}
	if *payload != (domain.TokenPayload{ID: "id-new", Name: "Nova", Role: domain.RoleNormal}) {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if len(h.audit.events) != 1 || h.audit.events[0].Kind != domain.AuditSignup {
		t.Fatalf("expected one signup audit event, got %+v", h.audit.events)
	}
}

func TestUserService_Signup_DuplicateEmailPropagates(t *testing.T) {
	h := newHarness()
	in := signupInput()
	in.Email = fulano.Email

	_, err := h.svc.Signup(context.Background(), in)
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if len(h.audit.events) != 0 {
		t.Fatalf("failed signup must not be audited")
	}
}

func TestUserService_Login_Success(t *testing.T) {
	h := newHarness()

	out, err := h.svc.Login(context.Background(), loginInput("fulano@email.com", "fulano123"))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if out.Message != "Login realizado com sucesso" {
		t.Fatalf("unexpected message: %s", out.Message)
	}

	payload, err := fixtureTokens().GetPayload(out.Token)
	if err != nil {
		t.Fatalf("token does not decode: %v", err)
	}
	if *payload != domain.PayloadFor(fulano) {
		t.Fatalf("payload %+v does not match stored record", payload)
	}
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Login(context.Background(), loginInput("fulano@email.com", "errada"))
	assertKind(t, err, domain.ErrBadRequest, "'email' ou 'password' incorretos")
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Login(context.Background(), loginInput("ghost@email.com", "x"))
	assertKind(t, err, domain.ErrNotFound, "'email' não encontrado")
}

func TestUserService_Login_StoreErrorPropagates(t *testing.T) {
	h := newHarness()
	boom := errors.New("connection reset")
	h.repo.findErr = boom

	_, err := h.svc.Login(context.Background(), loginInput("fulano@email.com", "fulano123"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if errors.Is(err, domain.ErrBadRequest) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("store faults must not be translated")
	}
}

// ---------------------------------------------------------------------------
// ListUsers / GetUserByID
// ---------------------------------------------------------------------------

func TestUserService_ListUsers_AdminSeesAll(t *testing.T) {
	h := newHarness()

	views, err := h.svc.ListUsers(context.Background(), listInput("", "token-mock-astrodev"))
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if len(views) != len(h.repo.byID) {
		t.Fatalf("expected %d users, got %d", len(h.repo.byID), len(views))
	}

	b, _ := json.Marshal(views)
	if strings.Contains(string(b), "hash:") || strings.Contains(strings.ToLower(string(b)), "password") {
		t.Fatalf("password hash leaked: %s", b)
	}
}

func TestUserService_ListUsers_Query(t *testing.T) {
	h := newHarness()

	views, err := h.svc.ListUsers(context.Background(), listInput("mestre", "token-mock-astrodev"))
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(views))
	}
}

func TestUserService_ListUsers_Denied(t *testing.T) {
	h := newHarness()

	for _, token := range []string{"token-mock-fulano", "token-mock-mestre"} {
		_, err := h.svc.ListUsers(context.Background(), listInput("", token))
		assertKind(t, err, domain.ErrBadRequest, "somente admins podem acessar")
	}

	_, err := h.svc.ListUsers(context.Background(), listInput("", "garbage"))
	assertKind(t, err, domain.ErrBadRequest, "token inválido")

	_, err = h.svc.ListUsers(context.Background(), listInput("", ""))
	assertKind(t, err, domain.ErrBadRequest, "token inválido")
}

func TestUserService_GetUserByID_Success(t *testing.T) {
	h := newHarness()

	view, err := h.svc.GetUserByID(context.Background(), getInput("id-mock-fulano", "token-mock-astrodev"))
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	if *view != fulano.View() {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := h.svc.GetUserByID(context.Background(), getInput("id-mock-astrodev", "token-mock-mestre")); err != nil {
		t.Fatalf("MASTER must read any user: %v", err)
	}
}

func TestUserService_GetUserByID_NormalDenied(t *testing.T) {
	h := newHarness()

	_, err := h.svc.GetUserByID(context.Background(), getInput("id-mock-fulano", "token-mock-fulano"))
	assertKind(t, err, domain.ErrBadRequest, "Usuários normais não tem acesso a essa ferramenta.")
}

func TestUserService_GetUserByID_Errors(t *testing.T) {
	h := newHarness()

	_, err := h.svc.GetUserByID(context.Background(), getInput("id-mock-fulano", "nope"))
	assertKind(t, err, domain.ErrBadRequest, "Token inválido")

	_, err = h.svc.GetUserByID(context.Background(), getInput("id-ghost", "token-mock-astrodev"))
	assertKind(t, err, domain.ErrNotFound, "Usuário não encontrado.")
}

// A token is a snapshot of the role at issuance: demoting the stored record
// does not revoke rights already carried by the token.
func TestUserService_TokenRoleIsNotRevalidated(t *testing.T) {
	h := newHarness()
	h.repo.byID[astrodev.ID].Role = domain.RoleNormal

	if _, err := h.svc.ListUsers(context.Background(), listInput("", "token-mock-astrodev")); err != nil {
		t.Fatalf("expected token role to be honoured, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// DeleteUserByID
// ---------------------------------------------------------------------------

func TestUserService_Delete_NormalSelf(t *testing.T) {
	h := newHarness()

	out, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-fulano", "token-mock-fulano", strPtr("fulano123")))
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if out.Message != "O usuário 'Fulano', foi deletado com sucesso!" {
		t.Fatalf("unexpected message: %s", out.Message)
	}
	if _, ok := h.repo.byID["id-mock-fulano"]; ok {
		t.Fatalf("user still present")
	}

	if len(h.audit.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(h.audit.events))
	}
	ev := h.audit.events[0]
	if ev.Kind != domain.AuditDelete || ev.UserID != "id-mock-fulano" || ev.ActorRole != domain.RoleNormal {
		t.Fatalf("unexpected audit event: %+v", ev)
	}
}

func TestUserService_Delete_NormalWrongPassword(t *testing.T) {
	h := newHarness()

	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-fulano", "token-mock-fulano", strPtr("errada")))
	assertKind(t, err, domain.ErrBadRequest, "Senha inválida.")

	_, err = h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-fulano", "token-mock-fulano", nil))
	assertKind(t, err, domain.ErrBadRequest, "Senha inválida.")

	if len(h.repo.deleted) != 0 {
		t.Fatalf("nothing should be deleted")
	}
}

func TestUserService_Delete_NormalOther(t *testing.T) {
	h := newHarness()

	// The target's own password gets past confirmation and hits ownership.
	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-ciclana", "token-mock-fulano", strPtr("ciclana99")))
	assertKind(t, err, domain.ErrBadRequest, "Usuário NORMAL não tem permissão para deletar outro usuário.")

	// Any other password fails confirmation first.
	for _, pw := range []*string{strPtr("fulano123"), strPtr("errada"), nil} {
		_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-ciclana", "token-mock-fulano", pw))
		assertKind(t, err, domain.ErrBadRequest, "Senha inválida.")
	}
	if len(h.repo.deleted) != 0 {
		t.Fatalf("nothing should be deleted")
	}
}

func TestUserService_Delete_AdminOtherAdmin(t *testing.T) {
	h := newHarness()

	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-beltrano", "token-mock-astrodev", strPtr("beltrano99")))
	assertKind(t, err, domain.ErrBadRequest, "Usuário 'ADMIN' pode deletar sua própria conta ou a conta de um usuário 'NORMAL'.")
}

func TestUserService_Delete_AdminSelf(t *testing.T) {
	h := newHarness()

	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-astrodev", "token-mock-astrodev", strPtr("wrong")))
	assertKind(t, err, domain.ErrBadRequest, "Senha inválida.")

	out, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-astrodev", "token-mock-astrodev", strPtr("astrodev99")))
	if err != nil {
		t.Fatalf("admin self delete failed: %v", err)
	}
	if out.Message != "O usuário 'Astrodev', foi deletado com sucesso!" {
		t.Fatalf("unexpected message: %s", out.Message)
	}
}

func TestUserService_Delete_AdminNormalWithoutPassword(t *testing.T) {
	h := newHarness()

	if _, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-ciclana", "token-mock-astrodev", nil)); err != nil {
		t.Fatalf("admin deleting NORMAL needs no password: %v", err)
	}
	if h.hasher.compared != 0 {
		t.Fatalf("password must not be checked, compared %d times", h.hasher.compared)
	}
}

func TestUserService_Delete_AdminMasterWithoutPassword(t *testing.T) {
	h := newHarness()

	if _, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-grao", "token-mock-astrodev", nil)); err != nil {
		t.Fatalf("admin deleting MASTER skips confirmation: %v", err)
	}
}

func TestUserService_Delete_Master(t *testing.T) {
	h := newHarness()

	if _, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-beltrano", "token-mock-mestre", nil)); err != nil {
		t.Fatalf("master deleting ADMIN needs no password: %v", err)
	}

	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-grao", "token-mock-mestre", strPtr("wrong")))
	assertKind(t, err, domain.ErrBadRequest, "Senha inválida.")

	if _, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-grao", "token-mock-mestre", strPtr("grao99"))); err != nil {
		t.Fatalf("master deleting MASTER with password failed: %v", err)
	}
}

func TestUserService_Delete_Errors(t *testing.T) {
	h := newHarness()

	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-fulano", "", nil))
	assertKind(t, err, domain.ErrBadRequest, "Token inválido.")

	_, err = h.svc.DeleteUserByID(context.Background(), deleteInput("id-ghost", "token-mock-astrodev", nil))
	assertKind(t, err, domain.ErrNotFound, "Usuário não localizado.")
}

func TestUserService_Delete_ConcurrentDeleteReportsNotFound(t *testing.T) {
	h := newHarness()
	h.repo.deleteErr = domain.ErrUserNotFound

	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-ciclana", "token-mock-astrodev", nil))
	assertKind(t, err, domain.ErrNotFound, "Usuário não localizado.")
	if len(h.audit.events) != 0 {
		t.Fatalf("failed delete must not be audited")
	}
}

func TestUserService_Delete_HasherFaultPropagates(t *testing.T) {
	h := newHarness()
	boom := errors.New("hash: bad cost")
	h.hasher.compareErr = boom

	_, err := h.svc.DeleteUserByID(context.Background(), deleteInput("id-mock-fulano", "token-mock-fulano", strPtr("fulano123")))
	if !errors.Is(err, boom) {
		t.Fatalf("expected hasher error, got %v", err)
	}
}

func TestUserService_NilAuditRecorder(t *testing.T) {
	repo := newStubUserRepo(fulano)
	svc := NewUserService(repo, stubIDs{next: "x"}, &stubHasher{}, fixtureTokens(), nil, zerolog.Nop())

	if _, err := svc.DeleteUserByID(context.Background(), deleteInput("id-mock-fulano", "token-mock-fulano", strPtr("fulano123"))); err != nil {
		t.Fatalf("delete without audit recorder failed: %v", err)
	}
}
