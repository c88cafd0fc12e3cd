package authz

import (
	"testing"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

type fixtureRow struct {
	OwnerID uuid.UUID
}

func fixtureOwner() Policy {
	return Policy{Name: "fixture_owner", Check: func(p Principal, row any) bool {
		r, ok := row.(*fixtureRow)
		return ok && p.Authenticated && r.OwnerID == p.UserID
	}}
}

func TestRegistryDefaultDeny(t *testing.T) {
	r := NewRegistry(nil)
	p := Principal{UserID: uuid.New(), Authenticated: true}

	if r.CanSelect(p, "unregistered", &fixtureRow{}) {
		t.Fatal("expected select denied on table without policies")
	}

	err := r.Authorize(p, OpInsert, "unregistered", &fixtureRow{})
	if err == nil {
		t.Fatal("expected insert denied on table without policies")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden code, got %v", err)
	}
}

func TestRegistryAnyPolicyGrants(t *testing.T) {
	r := NewRegistry(nil)
	owner := Principal{UserID: uuid.New(), Authenticated: true}
	stranger := Principal{UserID: uuid.New(), Authenticated: true}
	admin := Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin, Authenticated: true}

	r.Register("things", OpUpdate, fixtureOwner(), AdminOverride())
	row := &fixtureRow{OwnerID: owner.UserID}

	if err := r.Authorize(owner, OpUpdate, "things", row); err != nil {
		t.Fatalf("owner should pass via first policy: %v", err)
	}
	if err := r.Authorize(admin, OpUpdate, "things", row); err != nil {
		t.Fatalf("admin should pass via second policy: %v", err)
	}
	if err := r.Authorize(stranger, OpUpdate, "things", row); err == nil {
		t.Fatal("stranger should fail every policy")
	}
}

func TestRegistryServiceRoleBypass(t *testing.T) {
	r := NewRegistry(nil)
	r.SetTraits("locked", TableTraits{ServiceRoleOnly: true})

	admin := Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin, Authenticated: true}
	if r.CanSelect(admin, "locked", nil) {
		t.Fatal("service-role-only table must deny admins")
	}
	if err := r.Authorize(admin, OpInsert, "locked", nil); err == nil {
		t.Fatal("service-role-only table must deny admin writes")
	}

	svc := Service()
	if !r.CanSelect(svc, "locked", nil) {
		t.Fatal("service principal must bypass traits")
	}
	if err := r.Authorize(svc, OpInsert, "locked", nil); err != nil {
		t.Fatalf("service principal must bypass policies: %v", err)
	}
}

func TestRegistryDenialMessageStaysGeneric(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("things", OpDelete, fixtureOwner())

	err := r.Authorize(Anonymous(), OpDelete, "things", &fixtureRow{OwnerID: uuid.New()})
	if err == nil {
		t.Fatal("expected denial")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if got := appErr.Message(); got != "not allowed to delete things" {
		t.Fatalf("unexpected message %q", got)
	}
	meta := pkgerrors.MetadataFor(appErr.Code())
	if meta.DetailsAllowed {
		t.Fatal("forbidden errors must not carry details to the client")
	}
}

func TestFilterKeepsVisibleRows(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("things", OpSelect, fixtureOwner())

	owner := Principal{UserID: uuid.New(), Authenticated: true}
	rows := []*fixtureRow{
		{OwnerID: owner.UserID},
		{OwnerID: uuid.New()},
		{OwnerID: owner.UserID},
	}

	visible := Filter(r, owner, "things", rows, func(row *fixtureRow) any { return row })
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible rows, got %d", len(visible))
	}
	for _, row := range visible {
		if row.OwnerID != owner.UserID {
			t.Fatal("foreign row leaked through filter")
		}
	}
}

func TestPoliciesListsRegisteredNames(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("things", OpSelect, fixtureOwner(), AdminOverride())

	names := r.Policies("things", OpSelect)
	if len(names) != 2 || names[0] != "fixture_owner" || names[1] != "admin_override" {
		t.Fatalf("unexpected policy names %v", names)
	}
	if got := r.Policies("things", OpDelete); got != nil {
		t.Fatalf("expected nil for unregistered pair, got %v", got)
	}
}
