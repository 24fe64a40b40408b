package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/cache"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
)

// invitationValidity is how long a generated invitation stays redeemable.
const invitationValidity = 7 * 24 * time.Hour

// ListInvitations returns the tenant's pending and historical invitations,
// remote-first with cache fallback.
func (d *Data) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return nil, err
	}

	if d.monitor.Online() {
		rows, err := d.store.Query(ctx, remote.CollectionInvitations, remote.Filter{"company_id": tenantID})
		if err == nil {
			invitations, err := decodeRows[domain.Invitation](rows)
			if err != nil {
				return nil, err
			}
			if err := d.cache.Write(ctx, tenantID, cache.Invitations, invitations); err != nil {
				return nil, err
			}
			return invitations, nil
		}
		d.log.Warn("invitation query failed, serving cache", zap.Error(err))
	}

	return readSnapshot[domain.Invitation](ctx, d.cache, tenantID, cache.Invitations)
}

// GenerateInvitation creates a pending invitation with a random token and a
// seven-day expiry. Invitations are online-only.
func (d *Data) GenerateInvitation(ctx context.Context, invitedName, invitedEmail string, role domain.Role, createdBy string) (domain.Invitation, error) {
	tenantID, err := d.tenantID()
	if err != nil {
		return domain.Invitation{}, err
	}
	if !d.monitor.Online() {
		return domain.Invitation{}, ErrOffline
	}
	if !role.IsValid() {
		return domain.Invitation{}, fmt.Errorf("invalid role %q", role)
	}

	token, err := invitationToken()
	if err != nil {
		return domain.Invitation{}, err
	}

	invitation := domain.Invitation{
		CompanyID:    tenantID,
		InvitedName:  invitedName,
		InvitedEmail: invitedEmail,
		Role:         role,
		Status:       domain.InvitationPending,
		Token:        token,
		ExpiresAt:    time.Now().UTC().Add(invitationValidity),
		CreatedBy:    createdBy,
	}

	created, err := insertRow(ctx, d.store, remote.CollectionInvitations, invitation)
	if err != nil {
		return domain.Invitation{}, err
	}
	return created, appendSnapshot(ctx, d.cache, tenantID, cache.Invitations, created)
}

// DeleteInvitation revokes an invitation and refreshes the snapshot.
func (d *Data) DeleteInvitation(ctx context.Context, id string) error {
	tenantID, err := d.tenantID()
	if err != nil {
		return err
	}
	if !d.monitor.Online() {
		return ErrOffline
	}

	if err := d.store.Delete(ctx, remote.CollectionInvitations, remote.Filter{"id": id, "company_id": tenantID}); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}

	invitations, err := readSnapshot[domain.Invitation](ctx, d.cache, tenantID, cache.Invitations)
	if err != nil {
		return err
	}
	kept := invitations[:0]
	for _, inv := range invitations {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	return d.cache.Write(ctx, tenantID, cache.Invitations, kept)
}

func invitationToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
