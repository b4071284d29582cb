package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/frahmantamala/taskboard/internal"
	rbacDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/rbac"
	"github.com/frahmantamala/taskboard/pkg/logger"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestRBAC(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "RBAC Module Suite")
}

// Mock RepositoryAPI with canned data per user and role
type mockRepository struct {
	roles       map[int64]*rbacDatamodel.Role
	permissions map[int64]*rbacDatamodel.Permission
	userPerms   map[int64][]string
	userRoles   map[int64][]string
	users       map[int64]bool
	assigned    [][2]int64
	revoked     [][2]int64
	resolveErr  error
	nextRoleID  int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[int64]*rbacDatamodel.Role),
		permissions: make(map[int64]*rbacDatamodel.Permission),
		userPerms:   make(map[int64][]string),
		userRoles:   make(map[int64][]string),
		users:       make(map[int64]bool),
		nextRoleID:  1,
	}
}

func (m *mockRepository) GetRoles(_ context.Context) ([]*rbacDatamodel.Role, error) {
	out := make([]*rbacDatamodel.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepository) GetRoleByID(_ context.Context, id int64) (*rbacDatamodel.Role, error) {
	return m.roles[id], nil
}

func (m *mockRepository) CreateRole(_ context.Context, role *rbacDatamodel.Role, _ []int64) error {
	role.ID = m.nextRoleID
	m.nextRoleID++
	m.roles[role.ID] = role
	return nil
}

func (m *mockRepository) UpdateRole(_ context.Context, role *rbacDatamodel.Role, _ []int64) error {
	m.roles[role.ID] = role
	return nil
}

func (m *mockRepository) DeleteRole(_ context.Context, id int64) error {
	delete(m.roles, id)
	return nil
}

func (m *mockRepository) GetPermissions(_ context.Context) ([]*rbacDatamodel.Permission, error) {
	out := make([]*rbacDatamodel.Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) GetRolePermissions(_ context.Context, _ int64) ([]*rbacDatamodel.Permission, error) {
	return nil, nil
}

func (m *mockRepository) CountPermissionsByIDs(_ context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		if _, ok := m.permissions[id]; ok {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) AddRolePermissions(_ context.Context, _ int64, _ []int64) error {
	return nil
}

func (m *mockRepository) RemoveRolePermission(_ context.Context, _, _ int64) error {
	return nil
}

func (m *mockRepository) GetUserRoleNames(_ context.Context, userID int64) ([]string, error) {
	return m.userRoles[userID], nil
}

func (m *mockRepository) GetUserPermissionKeys(_ context.Context, userID int64) ([]string, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.userPerms[userID], nil
}

func (m *mockRepository) AddUserRole(_ context.Context, userID, roleID int64, _ *int64) error {
	m.assigned = append(m.assigned, [2]int64{userID, roleID})
	return nil
}

func (m *mockRepository) RemoveUserRole(_ context.Context, userID, roleID int64) error {
	m.revoked = append(m.revoked, [2]int64{userID, roleID})
	return nil
}

func (m *mockRepository) UserExists(_ context.Context, userID int64) (bool, error) {
	return m.users[userID], nil
}

var _ = ginkgo.Describe("RBACService", func() {
	var (
		service *Service
		repo    *mockRepository
		ctx     context.Context
	)

	ginkgo.BeforeEach(func() {
		repo = newMockRepository()
		ctx = context.Background()
		service = NewService(repo, logger.LoggerWrapper())
	})

	ginkgo.Describe("ResolvePermissions", func() {
		ginkgo.It("deduplicates keys across roles", func() {
			repo.userPerms[1] = []string{"VIEW_PROJECT", "EDIT_PROJECT", "VIEW_PROJECT"}

			perms, err := service.ResolvePermissions(ctx, 1)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(perms).To(gomega.ConsistOf("VIEW_PROJECT", "EDIT_PROJECT"))
		})

		ginkgo.It("returns the empty set for a user with no roles", func() {
			perms, err := service.ResolvePermissions(ctx, 42)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(perms).To(gomega.BeEmpty())
			gomega.Expect(perms).ToNot(gomega.BeNil())
		})
	})

	ginkgo.Describe("Authorize", func() {
		ginkgo.It("grants a held permission", func() {
			repo.userPerms[1] = []string{"VIEW_PROJECT"}

			ok, err := service.Authorize(ctx, 1, "VIEW_PROJECT")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
		})

		ginkgo.It("denies a missing permission", func() {
			repo.userPerms[1] = []string{"VIEW_PROJECT"}

			ok, err := service.Authorize(ctx, 1, "DELETE_PROJECT")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("denies when resolution fails", func() {
			repo.resolveErr = errors.New("db down")

			ok, err := service.Authorize(ctx, 1, "VIEW_PROJECT")
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("CreateRole", func() {
		ginkgo.It("rejects unknown permission ids before writing", func() {
			repo.permissions[1] = &rbacDatamodel.Permission{ID: 1, Name: "VIEW_PROJECT"}

			_, err := service.CreateRole(ctx, CreateRoleDTO{
				Name:          "manager",
				PermissionIDs: []int64{1, 999},
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidReference))
			gomega.Expect(repo.roles).To(gomega.BeEmpty())
		})

		ginkgo.It("creates a role with valid references", func() {
			repo.permissions[1] = &rbacDatamodel.Permission{ID: 1, Name: "VIEW_PROJECT"}

			role, err := service.CreateRole(ctx, CreateRoleDTO{
				Name:          "manager",
				PermissionIDs: []int64{1},
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(role.Name).To(gomega.Equal("manager"))
		})
	})

	ginkgo.Describe("GetRole", func() {
		ginkgo.It("returns a role not found error for an unknown id", func() {
			_, err := service.GetRole(ctx, 999)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrRoleNotFound))
		})
	})

	ginkgo.Describe("DeleteRole", func() {
		ginkgo.It("returns a role not found error for an unknown id", func() {
			err := service.DeleteRole(ctx, 999)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrRoleNotFound))
		})
	})

	ginkgo.Describe("AssignRole", func() {
		ginkgo.It("rejects an unknown user", func() {
			repo.roles[1] = &rbacDatamodel.Role{ID: 1, Name: "manager"}

			err := service.AssignRole(ctx, 999, 1, nil)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrUserNotFound))
			gomega.Expect(repo.assigned).To(gomega.BeEmpty())
		})

		ginkgo.It("rejects an unknown role", func() {
			repo.users[1] = true

			err := service.AssignRole(ctx, 1, 999, nil)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrRoleNotFound))
			gomega.Expect(repo.assigned).To(gomega.BeEmpty())
		})

		ginkgo.It("adds the role to the user's set", func() {
			repo.users[1] = true
			repo.roles[2] = &rbacDatamodel.Role{ID: 2, Name: "manager"}

			err := service.AssignRole(ctx, 1, 2, nil)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(repo.assigned).To(gomega.HaveLen(1))
		})
	})
})
