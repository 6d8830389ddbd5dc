package external

import (
	"context"
	"errors"
	"testing"

	"github.com/fadedpez/dnd5e-api/clients/dnd5e"
	"github.com/fadedpez/dnd5e-api/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	internalerrors "github.com/forgekeep/encounter-api/internal/errors"
)

// mockDND5eClient is a mock implementation of the dnd5e.Interface for testing
type mockDND5eClient struct {
	mock.Mock
}

func (m *mockDND5eClient) ListRaces() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetRace(key string) (*entities.Race, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Race), args.Error(1)
}

func (m *mockDND5eClient) ListEquipment() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetEquipment(key string) (dnd5e.EquipmentInterface, error) {
	args := m.Called(key)
	return args.Get(0).(dnd5e.EquipmentInterface), args.Error(1)
}

func (m *mockDND5eClient) GetEquipmentCategory(key string) (*entities.EquipmentCategory, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.EquipmentCategory), args.Error(1)
}

func (m *mockDND5eClient) ListClasses() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetClass(key string) (*entities.Class, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Class), args.Error(1)
}

func (m *mockDND5eClient) ListSpells(input *dnd5e.ListSpellsInput) ([]*entities.ReferenceItem, error) {
	args := m.Called(input)
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetSpell(key string) (*entities.Spell, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Spell), args.Error(1)
}

func (m *mockDND5eClient) ListFeatures() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetFeature(key string) (*entities.Feature, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Feature), args.Error(1)
}

func (m *mockDND5eClient) ListSkills() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetSkill(key string) (*entities.Skill, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Skill), args.Error(1)
}

func (m *mockDND5eClient) ListMonsters() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) ListMonstersWithFilter(input *dnd5e.ListMonstersInput) ([]*entities.ReferenceItem, error) {
	args := m.Called(input)
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetMonster(key string) (*entities.Monster, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Monster), args.Error(1)
}

func (m *mockDND5eClient) GetClassLevel(key string, level int) (*entities.Level, error) {
	args := m.Called(key, level)
	return args.Get(0).(*entities.Level), args.Error(1)
}

func (m *mockDND5eClient) GetProficiency(key string) (*entities.Proficiency, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Proficiency), args.Error(1)
}

func (m *mockDND5eClient) ListDamageTypes() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetDamageType(key string) (*entities.DamageType, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.DamageType), args.Error(1)
}

func (m *mockDND5eClient) ListBackgrounds() ([]*entities.ReferenceItem, error) {
	args := m.Called()
	return args.Get(0).([]*entities.ReferenceItem), args.Error(1)
}

func (m *mockDND5eClient) GetBackground(key string) (*entities.Background, error) {
	args := m.Called(key)
	return args.Get(0).(*entities.Background), args.Error(1)
}

func TestListAvailableMonsters(t *testing.T) {
	t.Run("successful monster listing", func(t *testing.T) {
		mockClient := new(mockDND5eClient)
		client := &client{dnd5eClient: mockClient}

		refs := []*entities.ReferenceItem{
			{Key: "goblin", Name: "Goblin"},
			{Key: "adult-red-dragon", Name: "Adult Red Dragon"},
		}

		mockClient.On("ListMonsters").Return(refs, nil)

		result, err := client.ListAvailableMonsters(context.Background())

		assert.NoError(t, err)
		assert.Len(t, result, 2)
		assert.Equal(t, "goblin", result[0].Key)
		assert.Equal(t, "Goblin", result[0].Name)
		assert.Equal(t, "adult-red-dragon", result[1].Key)
		assert.Equal(t, "Adult Red Dragon", result[1].Name)

		mockClient.AssertExpectations(t)
	})

	t.Run("monster listing API error", func(t *testing.T) {
		mockClient := new(mockDND5eClient)
		client := &client{dnd5eClient: mockClient}

		mockClient.On("ListMonsters").Return(([]*entities.ReferenceItem)(nil), errors.New("API error"))

		result, err := client.ListAvailableMonsters(context.Background())

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "failed to list monsters from D&D 5e API")

		mockClient.AssertExpectations(t)
	})
}

func TestVerifyMonster(t *testing.T) {
	t.Run("monster exists", func(t *testing.T) {
		mockClient := new(mockDND5eClient)
		client := &client{dnd5eClient: mockClient}

		mockClient.On("GetMonster", "goblin").Return(&entities.Monster{}, nil)

		err := client.VerifyMonster(context.Background(), "goblin")

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("monster not found", func(t *testing.T) {
		mockClient := new(mockDND5eClient)
		client := &client{dnd5eClient: mockClient}

		mockClient.On("GetMonster", "not-a-monster").Return(
			(*entities.Monster)(nil), errors.New("monster not found"))

		err := client.VerifyMonster(context.Background(), "not-a-monster")

		assert.Error(t, err)
		assert.True(t, internalerrors.IsNotFound(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("empty key", func(t *testing.T) {
		mockClient := new(mockDND5eClient)
		client := &client{dnd5eClient: mockClient}

		err := client.VerifyMonster(context.Background(), "")

		assert.Error(t, err)
		assert.True(t, internalerrors.IsInvalidArgument(err))
	})
}

func TestListDamageTypes(t *testing.T) {
	t.Run("successful damage type listing", func(t *testing.T) {
		mockClient := new(mockDND5eClient)
		client := &client{dnd5eClient: mockClient}

		refs := []*entities.ReferenceItem{
			{Key: "fire", Name: "Fire"},
			{Key: "bludgeoning", Name: "Bludgeoning"},
		}

		mockClient.On("ListDamageTypes").Return(refs, nil)

		result, err := client.ListDamageTypes(context.Background())

		assert.NoError(t, err)
		assert.Len(t, result, 2)
		assert.Equal(t, "fire", result[0].Key)
		assert.Equal(t, "Bludgeoning", result[1].Name)

		mockClient.AssertExpectations(t)
	})

	t.Run("damage type listing API error", func(t *testing.T) {
		mockClient := new(mockDND5eClient)
		client := &client{dnd5eClient: mockClient}

		mockClient.On("ListDamageTypes").Return(([]*entities.ReferenceItem)(nil), errors.New("API error"))

		result, err := client.ListDamageTypes(context.Background())

		assert.Error(t, err)
		assert.Nil(t, result)

		mockClient.AssertExpectations(t)
	})
}
