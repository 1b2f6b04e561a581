package services

import (
	"strconv"
	"strings"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

// customerLabelFallback is what customers are called when their profile has
// neither a full name nor a username.
const customerLabelFallback = "Cliente"

const organizationNameFallback = "Organização"

// ResolveUserLabel derives the display label used as a conversation title:
// trimmed full name, else "@username", else a generic fallback.
func ResolveUserLabel(profile *models.Profile) string {
	if profile != nil {
		if profile.FullName != nil {
			if name := strings.TrimSpace(*profile.FullName); name != "" {
				return name
			}
		}
		if profile.Username != nil && *profile.Username != "" {
			return "@" + *profile.Username
		}
	}
	return customerLabelFallback
}

// ResolveSenderDisplay maps a message sender to the identity shown to the
// viewer. Staff whose membership displays as ORGANIZATION are presented to
// customers under the organization's branding, not as individuals.
func ResolveSenderDisplay(
	senderID string,
	members []models.ConversationMember,
	viewerIsCustomer bool,
	viewerID string,
	organization *models.Organization,
) *models.SenderDisplay {
	if senderID == "" {
		return nil
	}

	var member *models.ConversationMember
	for i := range members {
		if members[i].UserID == senderID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		return nil
	}

	if viewerID != "" && senderID == viewerID {
		return profileDisplay(senderID, member.User)
	}

	if viewerIsCustomer && member.DisplayAs == models.DisplayAsOrganization && organization != nil {
		name := organizationNameFallback
		if organization.PublicName != nil && *organization.PublicName != "" {
			name = *organization.PublicName
		} else if organization.BusinessName != nil && *organization.BusinessName != "" {
			name = *organization.BusinessName
		}
		return &models.SenderDisplay{
			ID:        "org:" + strconv.FormatInt(organization.ID, 10),
			FullName:  &name,
			Username:  organization.Username,
			AvatarURL: organization.BrandingAvatarURL,
		}
	}

	return profileDisplay(senderID, member.User)
}

func profileDisplay(userID string, profile *models.Profile) *models.SenderDisplay {
	display := &models.SenderDisplay{ID: userID}
	if profile != nil {
		display.FullName = profile.FullName
		display.Username = profile.Username
		display.AvatarURL = profile.AvatarURL
	}
	return display
}
