package catalog

func defaultBuildings() []Building {
	return []Building{
		{ID: Headquarters, Name: "Headquarters", BaseCost: Cost{90, 80, 70}, CostFactor: 1.26, BasePopulation: 5, BaseSeconds: 90, Points: 10, MaxLevel: 30},
		{ID: TimberCamp, Name: "Timber Camp", BaseCost: Cost{50, 60, 40}, CostFactor: 1.25, BasePopulation: 5, BaseSeconds: 60, Points: 6, MaxLevel: 30},
		{ID: ClayPit, Name: "Clay Pit", BaseCost: Cost{65, 50, 40}, CostFactor: 1.25, BasePopulation: 5, BaseSeconds: 60, Points: 6, MaxLevel: 30},
		{ID: IronMine, Name: "Iron Mine", BaseCost: Cost{75, 65, 70}, CostFactor: 1.25, BasePopulation: 5, BaseSeconds: 60, Points: 6, MaxLevel: 30},
		{ID: Farm, Name: "Farm", BaseCost: Cost{45, 40, 30}, CostFactor: 1.30, BasePopulation: 0, BaseSeconds: 120, Points: 5, MaxLevel: 30},
		{ID: Warehouse, Name: "Warehouse", BaseCost: Cost{60, 50, 40}, CostFactor: 1.27, BasePopulation: 0, BaseSeconds: 100, Points: 6, MaxLevel: 30},
		{ID: Barracks, Name: "Barracks", BaseCost: Cost{200, 170, 90}, CostFactor: 1.26, BasePopulation: 7, BaseSeconds: 300, Points: 16, MaxLevel: 25},
		{ID: Stable, Name: "Stable", BaseCost: Cost{270, 240, 260}, CostFactor: 1.26, BasePopulation: 8, BaseSeconds: 600, Points: 20, MaxLevel: 20},
		{ID: Workshop, Name: "Workshop", BaseCost: Cost{300, 240, 260}, CostFactor: 1.26, BasePopulation: 8, BaseSeconds: 600, Points: 24, MaxLevel: 15},
		{ID: Smithy, Name: "Smithy", BaseCost: Cost{220, 180, 240}, CostFactor: 1.26, BasePopulation: 20, BaseSeconds: 400, Points: 19, MaxLevel: 10},
		{ID: Academy, Name: "Academy", BaseCost: Cost{15000, 25000, 10000}, CostFactor: 2.0, BasePopulation: 80, BaseSeconds: 3600, Points: 512, MaxLevel: 3},
		{ID: Wall, Name: "Wall", BaseCost: Cost{50, 100, 20}, CostFactor: 1.28, BasePopulation: 5, BaseSeconds: 180, Points: 8, MaxLevel: 20},
		{ID: Market, Name: "Market", BaseCost: Cost{100, 100, 100}, CostFactor: 1.2, BasePopulation: 20, BaseSeconds: 60, Points: 10, MaxLevel: 25},
	}
}

func defaultUnits() []Unit {
	return []Unit{
		{ID: Spear, Name: "Spear Fighter", Class: Infantry, Cost: Cost{50, 30, 10}, Population: 1, Attack: 10, DefenseGeneral: 15, DefenseCavalry: 45, Speed: 18, Carry: 25, TrainingSeconds: 20, MaxTechLevel: 3, TrainingBuilding: Barracks},
		{ID: Sword, Name: "Swordsman", Class: Infantry, Cost: Cost{30, 30, 70}, Population: 1, Attack: 25, DefenseGeneral: 50, DefenseCavalry: 15, Speed: 22, Carry: 15, TrainingSeconds: 25, MaxTechLevel: 3, TrainingBuilding: Barracks},
		{ID: Axe, Name: "Axeman", Class: Infantry, Cost: Cost{60, 30, 40}, Population: 1, Attack: 40, DefenseGeneral: 10, DefenseCavalry: 5, Speed: 18, Carry: 10, TrainingSeconds: 22, MaxTechLevel: 3, TrainingBuilding: Barracks},
		{ID: Scout, Name: "Scout", Class: Cavalry, Role: RoleScout, Cost: Cost{50, 50, 20}, Population: 2, Attack: 0, DefenseGeneral: 2, DefenseCavalry: 1, Speed: 9, Carry: 0, TrainingSeconds: 30, MaxTechLevel: 3, TrainingBuilding: Stable},
		{ID: LightCav, Name: "Light Cavalry", Class: Cavalry, Cost: Cost{125, 100, 250}, Population: 4, Attack: 130, DefenseGeneral: 30, DefenseCavalry: 40, Speed: 10, Carry: 80, TrainingSeconds: 40, MaxTechLevel: 3, TrainingBuilding: Stable},
		{ID: HeavyCav, Name: "Heavy Cavalry", Class: Cavalry, Cost: Cost{200, 150, 600}, Population: 6, Attack: 150, DefenseGeneral: 200, DefenseCavalry: 80, Speed: 11, Carry: 50, TrainingSeconds: 60, MaxTechLevel: 3, TrainingBuilding: Stable},
		{ID: Ram, Name: "Ram", Class: Infantry, Role: RoleRam, Cost: Cost{300, 200, 200}, Population: 5, Attack: 2, DefenseGeneral: 20, DefenseCavalry: 50, Speed: 30, Carry: 0, TrainingSeconds: 90, MaxTechLevel: 3, TrainingBuilding: Workshop},
		{ID: Catapult, Name: "Catapult", Class: Infantry, Role: RoleCatapult, Cost: Cost{320, 400, 100}, Population: 8, Attack: 100, DefenseGeneral: 100, DefenseCavalry: 50, Speed: 30, Carry: 0, TrainingSeconds: 120, MaxTechLevel: 3, TrainingBuilding: Workshop},
		{ID: Noble, Name: "Nobleman", Class: Infantry, Role: RoleNoble, Cost: Cost{40000, 50000, 50000}, Population: 100, Attack: 30, DefenseGeneral: 100, DefenseCavalry: 50, Speed: 35, Carry: 0, TrainingSeconds: 3600, MaxTechLevel: 1, TrainingBuilding: Academy},
	}
}
