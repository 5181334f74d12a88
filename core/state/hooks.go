package state

var hookSettingsPrefix = []byte("hook-settings")

// HookSettings is the per-account hook configuration kept by a vault.
type HookSettings struct {
	UseBeforeClaimPrize bool
	UseAfterClaimPrize  bool
	Implementation      [20]byte
}

type storedHookSettings struct {
	UseBeforeClaimPrize bool
	UseAfterClaimPrize  bool
	Implementation      []byte
}

// HookSettingsGet loads the hook settings of account on vault.
func (m *Manager) HookSettingsGet(vault [20]byte, account [20]byte) (HookSettings, bool, error) {
	var stored storedHookSettings
	ok, err := m.getRLP(hashKey(hookSettingsPrefix, vault[:], account[:]), &stored)
	if err != nil || !ok {
		return HookSettings{}, false, err
	}
	settings := HookSettings{
		UseBeforeClaimPrize: stored.UseBeforeClaimPrize,
		UseAfterClaimPrize:  stored.UseAfterClaimPrize,
	}
	copy(settings.Implementation[:], stored.Implementation)
	return settings, true, nil
}

// HookSettingsPut stores the hook settings of account on vault.
func (m *Manager) HookSettingsPut(vault [20]byte, account [20]byte, settings HookSettings) error {
	return m.putRLP(hashKey(hookSettingsPrefix, vault[:], account[:]), storedHookSettings{
		UseBeforeClaimPrize: settings.UseBeforeClaimPrize,
		UseAfterClaimPrize:  settings.UseAfterClaimPrize,
		Implementation:      append([]byte(nil), settings.Implementation[:]...),
	})
}
